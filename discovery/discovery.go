package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"time"
)

const multicastIpAddress = "239.0.0.1"

const keyLength = 8

// Announcement is what a node tells the others about itself.
type Announcement struct {
	Rank      int    `json:"rank"`
	Address   string `json:"address"`
	PublicKey string `json:"public_key,omitempty"`
}

// Entry is an announcement received from a peer at Time.
type Entry struct {
	Announcement
	Time time.Time
}

// Discover announces Announcement and delivers the announcements of the
// other nodes on Entries. Configure the exported fields, then call Start.
type Discover struct {
	Announcement                 Announcement
	Port                         uint16
	IntervalBetweenAnnouncements time.Duration
	Logger                       *slog.Logger
	Entries                      chan Entry
	conn                         *net.UDPConn
	sendConn                     *net.UDPConn
	key                          []byte
	done                         chan struct{}
}

// Start joins the multicast group and starts announcing.
func (d *Discover) Start() error {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.IntervalBetweenAnnouncements <= 0 {
		d.IntervalBetweenAnnouncements = time.Second
	}
	info, err := json.Marshal(d.Announcement)
	if err != nil {
		return err
	}
	d.Entries = make(chan Entry, 10)
	d.done = make(chan struct{})
	d.key = []byte(fmt.Sprintf("%08x", rand.Uint32()))
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", multicastIpAddress, d.Port))
	if err != nil {
		return err
	}
	d.conn, err = net.ListenMulticastUDP("udp", nil, addr)
	if err != nil {
		return err
	}
	d.sendConn, err = net.DialUDP("udp", nil, addr)
	if err != nil {
		return errors.Join(err, d.conn.Close())
	}
	go d.listen()
	go d.announce(append(append([]byte(nil), d.key...), info...))
	return nil
}

// Close stops announcing and listening.
func (d *Discover) Close() error {
	close(d.done)
	return errors.Join(d.conn.Close(), d.sendConn.Close())
}

// Collect waits until announcements from n distinct ranks have been
// received and returns the latest entry of each rank.
func (d *Discover) Collect(ctx context.Context, n int) (map[int]Entry, error) {
	peers := make(map[int]Entry, n)
	for len(peers) < n {
		select {
		case entry := <-d.Entries:
			peers[entry.Rank] = entry
		case <-ctx.Done():
			return peers, fmt.Errorf("found %d of %d peers: %w", len(peers), n, ctx.Err())
		}
	}
	return peers, nil
}

func (d *Discover) listen() {
	buffer := make([]byte, 1024)
	for {
		n, _, err := d.conn.ReadFromUDP(buffer)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			d.Logger.Error("discovery read failed", "error", err)
			return
		}
		packet := buffer[:n]
		if len(packet) < keyLength || bytes.Equal(packet[:keyLength], d.key) {
			continue
		}
		var a Announcement
		if err := json.Unmarshal(packet[keyLength:], &a); err != nil {
			d.Logger.Warn("dropping malformed announcement", "error", err)
			continue
		}
		select {
		case d.Entries <- Entry{Announcement: a, Time: time.Now()}:
		case <-d.done:
			return
		}
	}
}

func (d *Discover) announce(packet []byte) {
	ticker := time.NewTicker(d.IntervalBetweenAnnouncements)
	defer ticker.Stop()
	for {
		if _, err := d.sendConn.Write(packet); err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			d.Logger.Error("discovery announcement failed", "error", err)
		}
		select {
		case <-ticker.C:
		case <-d.done:
			return
		}
	}
}
