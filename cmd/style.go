package main

import (
	"fmt"
	"sort"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"

	"github.com/luca-patrignani/tec/application"
	"github.com/luca-patrignani/tec/consensus"
)

func printBanner() {
	pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("T", pterm.FgRed.ToStyle()),
		putils.LettersFromStringWithStyle("E", pterm.FgDarkGray.ToStyle()),
		putils.LettersFromStringWithStyle("C", pterm.FgRed.ToStyle()),
	).Render()
}

func printPeers(addresses map[int]string, self int) {
	ranks := make([]int, 0, len(addresses))
	for r := range addresses {
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)
	data := pterm.TableData{{"Node", "Address", ""}}
	for _, r := range ranks {
		mark := ""
		if r == self {
			mark = pterm.LightCyan("this node")
		}
		data = append(data, []string{fmt.Sprint(r), addresses[r], mark})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func outcomeString(o consensus.Outcome, stale bool) string {
	switch o {
	case consensus.Agreement:
		return pterm.LightGreen(o.String())
	case consensus.LocalOutvoted:
		return pterm.LightYellow(o.String())
	case consensus.NoMajority:
		if stale {
			return pterm.LightRed(o.String() + " (stale)")
		}
		return pterm.LightRed(o.String())
	}
	return pterm.Gray(o.String())
}

func statusPanel(s application.Status) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	r := s.Report
	info := pterm.Sprintfln("Temperature: %d %c\nVote: %s  Lost: %d\nCommands: %d  Errors: %d\nMessages: %d",
		r.Temperature, r.Unit, outcomeString(s.Outcome, s.Stale), s.LostVotes, r.CommandCounter, r.ErrorCounter, r.Reserved)
	title := pterm.LightCyan(fmt.Sprintf("|NODE %d|", s.Node))
	return pterm.Panel{Data: pbox.WithTitle(title).WithTitleTopCenter().Sprint(info)}
}

func printStatus(s application.Status) {
	pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		{statusPanel(s)},
	}).Render()
}
