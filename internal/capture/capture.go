// Package capture records ingest and RSM egress traffic to a standard pcap
// file via gopacket/pcapgo, replacing the teacher repo's hand-rolled
// binlog writer/parser (a bespoke little-endian global-header-plus-
// per-packet-header format) with a format any packet tool can read.
package capture

import (
	"io"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Direction marks which side of the pipeline produced a captured frame.
type Direction int

const (
	DirIngest Direction = iota
	DirEgress
)

// Writer appends raw frames to a pcap capture file. Frames are written as
// IPv4/UDP datagrams wrapping the raw payload so the capture is readable by
// standard tools (Wireshark, tcpdump) without a custom dissector; src/dst
// ports just distinguish ingest frames from RSM egress frames.
type Writer struct {
	w   *pcapgo.Writer
	buf gopacket.SerializeBuffer
	opt gopacket.SerializeOptions
}

const (
	portIngest = 47001
	portEgress = 47002
)

// NewWriter writes a pcap global header to out and returns a Writer ready
// for WriteFrame calls.
func NewWriter(out io.Writer) (*Writer, error) {
	w := pcapgo.NewWriter(out)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return nil, err
	}
	return &Writer{
		w:   w,
		buf: gopacket.NewSerializeBuffer(),
		opt: gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true},
	}, nil
}

// WriteFrame captures payload at ts, tagged with dir to pick a synthetic
// UDP port so ingest and egress traffic are distinguishable in a pcap
// viewer's port column.
func (cw *Writer) WriteFrame(ts time.Time, dir Direction, payload []byte) error {
	srcPort := layers.UDPPort(portIngest)
	dstPort := layers.UDPPort(portIngest)
	if dir == DirEgress {
		srcPort = layers.UDPPort(portEgress)
		dstPort = layers.UDPPort(portEgress)
	}

	eth := &layers.Ethernet{EthernetType: layers.EthernetTypeIPv4}
	ip := &layers.IPv4{Version: 4, IHL: 5, TTL: 64, Protocol: layers.IPProtocolUDP}
	udp := &layers.UDP{SrcPort: srcPort, DstPort: dstPort}
	udp.SetNetworkLayerForChecksum(ip)

	cw.buf.Clear()
	if err := gopacket.SerializeLayers(cw.buf, cw.opt, eth, ip, udp, gopacket.Payload(payload)); err != nil {
		return err
	}
	data := cw.buf.Bytes()
	return cw.w.WritePacket(gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(data),
		Length:        len(data),
	}, data)
}
