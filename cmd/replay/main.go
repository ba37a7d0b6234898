// Command replay re-sends frames from a capture file produced by
// internal/capture, pacing them according to their original inter-arrival
// timing, adapted from the teacher repo's cmd/replay/main.go.
package main

import (
	"flag"
	"io"
	"log"
	"net"
	"os"
	"time"

	"mec-fusion-go/internal/capture"
)

func main() {
	pcapPath := flag.String("pcap", "", "capture file to replay")
	dest := flag.String("dest", "127.0.0.1:47001", "UDP destination for replayed frames")
	speed := flag.Float64("speed", 1.0, "playback speed multiplier (1.0 = real time)")
	flag.Parse()

	if *pcapPath == "" {
		log.Fatal("replay: -pcap is required")
	}

	f, err := os.Open(*pcapPath)
	if err != nil {
		log.Fatalf("replay: open %s: %v", *pcapPath, err)
	}
	defer f.Close()

	r, err := capture.NewReader(f)
	if err != nil {
		log.Fatalf("replay: parse capture header: %v", err)
	}

	addr, err := net.ResolveUDPAddr("udp", *dest)
	if err != nil {
		log.Fatalf("replay: resolve %s: %v", *dest, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		log.Fatalf("replay: dial %s: %v", *dest, err)
	}
	defer conn.Close()

	var firstTs, startReal time.Time
	count := 0
	for {
		payload, dir, info, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Fatalf("replay: read frame: %v", err)
		}

		if firstTs.IsZero() {
			firstTs = info.Timestamp
			startReal = time.Now()
		}
		targetDelay := time.Duration(float64(info.Timestamp.Sub(firstTs)) / *speed)
		elapsed := time.Since(startReal)
		if wait := targetDelay - elapsed; wait > 0 {
			time.Sleep(wait)
		}

		if _, err := conn.Write(payload); err != nil {
			log.Printf("replay: write failed: %v", err)
			continue
		}
		count++
		if dir == capture.DirEgress {
			log.Printf("replay: sent egress frame #%d (%d bytes)", count, len(payload))
		}
	}
	log.Printf("replay: done, %d frames sent", count)
}
