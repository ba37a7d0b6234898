// Transport delivery for encoded RSM frames, adapted from the teacher
// repo's rbc/sender.go multi-target UDP/TCP broadcaster. The spec leaves
// delivery transport to the caller's discretion ("UDP datagram, shared
// memory, file"); this keeps the teacher's fan-out broadcaster shape but
// drops its RBC-specific flag routing, since RSM frames have no per-flag
// classification.
package v2x

import (
	"net"
	"sync"
	"time"

	"mec-fusion-go/internal/obslog"
)

// Broadcaster fans a sequence of encoded RSM frames out to zero or more UDP
// targets and zero or more reconnecting TCP targets.
type Broadcaster struct {
	mu         sync.Mutex
	udpConn    *net.UDPConn
	udpTargets []*net.UDPAddr
	tcpClients []*tcpClient
	running    bool
}

// NewBroadcaster opens a single UDP socket used to send to all UDP targets.
func NewBroadcaster() (*Broadcaster, error) {
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return nil, err
	}
	return &Broadcaster{udpConn: conn}, nil
}

// AddUDPTarget registers a "host:port" destination for future Send calls.
func (b *Broadcaster) AddUDPTarget(addr string) error {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.udpTargets = append(b.udpTargets, a)
	b.mu.Unlock()
	return nil
}

// AddTCPTarget registers a "host:port" destination served by a background
// goroutine that reconnects with backoff, mirroring rbc.TcpClient.
func (b *Broadcaster) AddTCPTarget(addr string) {
	c := &tcpClient{addr: addr, outbound: make(chan []byte, 16)}
	b.mu.Lock()
	b.tcpClients = append(b.tcpClients, c)
	running := b.running
	b.mu.Unlock()
	if running {
		c.start()
	}
}

// Start launches the background connection loops for any TCP targets
// already registered.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	b.running = true
	clients := append([]*tcpClient(nil), b.tcpClients...)
	b.mu.Unlock()
	for _, c := range clients {
		c.start()
	}
}

// Stop halts all TCP client loops and closes the UDP socket.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	b.running = false
	clients := append([]*tcpClient(nil), b.tcpClients...)
	b.mu.Unlock()
	for _, c := range clients {
		c.stop()
	}
	if b.udpConn != nil {
		b.udpConn.Close()
	}
}

// Send writes frame to every registered UDP and TCP target, logging (not
// failing) on a per-target send error since RSM delivery has no
// retransmission contract.
func (b *Broadcaster) Send(frame []byte) {
	b.mu.Lock()
	udpTargets := append([]*net.UDPAddr(nil), b.udpTargets...)
	tcpClients := append([]*tcpClient(nil), b.tcpClients...)
	b.mu.Unlock()

	for _, addr := range udpTargets {
		if _, err := b.udpConn.WriteToUDP(frame, addr); err != nil {
			obslog.L().Warn("v2x: udp send to %s failed: %v", addr, err)
		}
	}
	for _, c := range tcpClients {
		c.enqueue(frame)
	}
}

type tcpClient struct {
	addr     string
	outbound chan []byte
	mu       sync.Mutex
	conn     net.Conn
	stopCh   chan struct{}
}

func (c *tcpClient) start() {
	c.mu.Lock()
	if c.stopCh != nil {
		c.mu.Unlock()
		return
	}
	c.stopCh = make(chan struct{})
	stop := c.stopCh
	c.mu.Unlock()
	go c.loop(stop)
}

func (c *tcpClient) stop() {
	c.mu.Lock()
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	if c.conn != nil {
		c.conn.Close()
	}
	c.mu.Unlock()
}

func (c *tcpClient) enqueue(frame []byte) {
	select {
	case c.outbound <- frame:
	default:
		obslog.L().Warn("v2x: tcp target %s outbound buffer full, dropping frame", c.addr)
	}
}

func (c *tcpClient) loop(stop chan struct{}) {
	backoff := time.Second
	for {
		select {
		case <-stop:
			return
		default:
		}
		conn, err := net.DialTimeout("tcp", c.addr, 2*time.Second)
		if err != nil {
			obslog.L().Warn("v2x: dial %s failed: %v, retrying in %s", c.addr, err, backoff)
			select {
			case <-stop:
				return
			case <-time.After(backoff):
			}
			continue
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		backoff = time.Second

		broken := false
		for !broken {
			select {
			case <-stop:
				conn.Close()
				return
			case frame := <-c.outbound:
				conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
				if _, err := conn.Write(frame); err != nil {
					obslog.L().Warn("v2x: write to %s failed: %v", c.addr, err)
					conn.Close()
					broken = true
				}
			}
		}
	}
}
