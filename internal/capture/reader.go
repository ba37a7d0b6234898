package capture

import (
	"io"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Reader replays frames previously written by Writer, used by cmd/replay.
type Reader struct {
	src *gopacket.PacketSource
}

// NewReader parses the pcap global header from in and returns a Reader
// positioned at the first packet.
func NewReader(in io.Reader) (*Reader, error) {
	r, err := pcapgo.NewReader(in)
	if err != nil {
		return nil, err
	}
	return &Reader{src: gopacket.NewPacketSource(r, r.LinkType())}, nil
}

// Next returns the next captured UDP payload, its direction (inferred from
// the synthetic port used at capture time) and its timestamp. It returns
// io.EOF once the capture is exhausted.
func (r *Reader) Next() (payload []byte, dir Direction, ts gopacket.CaptureInfo, err error) {
	pkt, err := r.src.NextPacket()
	if err != nil {
		return nil, 0, gopacket.CaptureInfo{}, err
	}
	udpLayer := pkt.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return r.Next()
	}
	udp := udpLayer.(*layers.UDP)
	d := DirIngest
	if uint16(udp.DstPort) == portEgress {
		d = DirEgress
	}
	return udp.Payload, d, pkt.Metadata().CaptureInfo, nil
}
