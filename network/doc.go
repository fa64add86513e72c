// Package network provides the software bus connecting the nodes of a TEC
// cluster.
//
// # Core Components
//
// Bus: an HTTP publish/subscribe node. Every node serves a single endpoint
// receiving frames from its peers and posts its own frames to every other
// node in Addresses.
//
// Frame: the wire form of a message.Envelope, encoded with
// go.dedis.ch/protobuf and signed with a Schnorr signature over the
// Ed25519 group.
//
// # Pipe
//
// Accepted frames are queued on a bounded pipe read by Receive. Frames on
// topics the bus is not subscribed to are acknowledged and dropped. When
// the pipe is full the receiver answers 503 and the sender backs off
// exponentially until its timeout expires.
//
// # Security
//
// WithCertificate and WithLimitedCAs switch the bus to mutually
// authenticated TLS. Independently of TLS, a bus configured WithPeerKeys
// refuses frames whose signature does not match the sender's key and
// frames from senders it has no key for.
//
// A telemetry topic belongs to one node: frames on it from any other
// sender are refused with 403.
package network
