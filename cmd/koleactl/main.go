package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/lanikai/kolea"
	"github.com/lanikai/kolea/internal/rtpsrc"
)

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg := kolea.DefaultConfig()
	cfg.WaitForSync = flagWaitForSync
	cfg.FilterOutSPSPPS = flagFilterSPSPPS
	cfg.GenerateFirstGrayIFrame = flagGenerateGrayI
	cfg.OutputIncompleteAU = flagOutputIncomplete

	p, err := kolea.New(cfg)
	if err != nil {
		log.Fatalf("kolea.New: %v", err)
	}

	stats := newStatsCollector()
	if err := p.AddConsumer("koleactl", stats.consumer()); err != nil {
		log.Fatalf("AddConsumer: %v", err)
	}
	p.SPSPPSReady = func(sps, pps []byte) {
		log.Printf("SPS/PPS ready: %d + %d bytes", len(sps), len(pps))
	}

	if err := p.Start(); err != nil {
		log.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	var statsStop chan struct{}
	if flagStatsInterval > 0 {
		statsStop = make(chan struct{})
		go runStatsLoop(p, stats, time.Duration(flagStatsInterval)*time.Second, statsStop)
	}

	var err2 error
	if flagInput != "" {
		err2 = replayFile(p, flagInput)
	} else {
		err2 = receiveUDP(p, flagListen)
	}

	if statsStop != nil {
		close(statsStop)
	}
	if err2 != nil {
		log.Fatal(err2)
	}
}

// replayFile drives the pipeline from a recorded Annex-B elementary stream,
// useful for exercising concealment and sync logic without a live link.
func replayFile(p *kolea.Pipeline, path string) error {
	src, err := rtpsrc.OpenAnnexBFile(path)
	if err != nil {
		return err
	}

	return src.Each(func(n rtpsrc.NALU) error {
		ts := kolea.Timestamps{Ts: n.Timestamp}
		return p.SubmitNALU(kolea.CauseNALUComplete, n.Bytes, ts, n.IsFirst, n.IsLast, n.MissingBefore)
	})
}

// receiveUDP listens for RTP/H.264 packets on addr and drives the pipeline
// from the depacketized NALUs, until the socket errors or is closed.
func receiveUDP(p *kolea.Pipeline, addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Printf("listening for RTP/H.264 on %s", addr)

	d := rtpsrc.NewDepacketizer()
	buf := make([]byte, 2048)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}

		nalus, ok := d.HandlePacket(buf[:n])
		if !ok {
			continue
		}
		for _, nalu := range nalus {
			ts := kolea.Timestamps{Ts: nalu.Timestamp}
			if err := p.SubmitNALU(kolea.CauseNALUComplete, nalu.Bytes, ts, nalu.IsFirst, nalu.IsLast, nalu.MissingBefore); err != nil {
				log.Printf("SubmitNALU: %v", err)
			}
		}
	}
}

func runStatsLoop(p *kolea.Pipeline, s *statsCollector, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			fmt.Println(s.report(p))
		}
	}
}
