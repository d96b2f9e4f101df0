package main

import (
	flag "github.com/spf13/pflag"
)

var (
	flagInput          string
	flagListen         string
	flagWaitForSync    bool
	flagFilterSPSPPS   bool
	flagGenerateGrayI  bool
	flagOutputIncomplete bool
	flagStatsInterval  int
	flagHelp           bool
	flagVersion        bool
)

func init() {
	flag.StringVarP(&flagInput, "input", "i", "", "Replay an Annex-B elementary stream file instead of listening on UDP")
	flag.StringVarP(&flagListen, "listen", "l", ":5004", "UDP address to receive RTP/H.264 on")
	flag.BoolVarP(&flagWaitForSync, "wait-for-sync", "w", true, "Drop access units until both SPS and PPS have been observed")
	flag.BoolVarP(&flagFilterSPSPPS, "filter-sps-pps", "f", false, "Strip parameter sets from delivered access units")
	flag.BoolVarP(&flagGenerateGrayI, "gray-i", "g", true, "Synthesize a gray IDR frame to seed decoding when none has been seen")
	flag.BoolVarP(&flagOutputIncomplete, "output-incomplete", "", false, "Deliver access units with recorded gaps instead of dropping them")
	flag.IntVarP(&flagStatsInterval, "stats-interval", "s", 2, "Seconds between printed throughput/loss statistics (0 disables)")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}
