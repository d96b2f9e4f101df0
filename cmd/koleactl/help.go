package main

import (
	"fmt"

	"github.com/fatih/color"
)

const helpString = `koleactl - replay H.264/RTP access units through a kolea.Pipeline

Usage: koleactl [OPTION]...

Input:
  -i, --input=FILE          Replay an Annex-B elementary stream file
  -l, --listen=ADDR         UDP address to receive RTP/H.264 on (default: :5004)

Pipeline:
  -w, --wait-for-sync       Drop access units until SPS+PPS observed (default: true)
  -f, --filter-sps-pps      Strip parameter sets from delivered access units
  -g, --gray-i              Synthesize a gray IDR frame to seed decoding (default: true)
      --output-incomplete   Deliver access units with recorded gaps

Reporting:
  -s, --stats-interval=SEC  Seconds between printed statistics (default: 2, 0 disables)

Miscellaneous:
  -h, --help                Prints this help message and exits
  -v, --version             Prints version information and exits`

func help() {
	b := color.New(color.FgCyan)
	b.Println("koleactl")
	fmt.Println(helpString)
}

var buildVersion = "dev"

func version() {
	fmt.Printf("koleactl %s\n", buildVersion)
}
