// Package discovery announces TEC nodes on the local network with UDP
// multicast.
//
// Every node periodically sends its Announcement (rank, bus address and
// public signing key) to 239.0.0.1 on the configured port and listens for
// the announcements of the others:
//
//	d := &discovery.Discover{
//		Announcement:                 discovery.Announcement{Rank: 0, Address: "10.0.0.5:7000"},
//		Port:                         53552,
//		IntervalBetweenAnnouncements: time.Second,
//	}
//	if err := d.Start(); err != nil {
//		return err
//	}
//	defer d.Close()
//	peers, err := d.Collect(ctx, 2)
//
// Each instance prefixes its packets with a random 8-byte key to filter out
// its own announcements.
package discovery
