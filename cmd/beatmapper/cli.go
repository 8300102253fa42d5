package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "generate":
		return runGenerate(args[2:])
	case "analyze":
		return runAnalyze(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "beatmapper"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s generate --in <song.wav|song.mp3> [--out <dir>] [--title <s>] [--artist <s>] [--difficulty AUTO|EASY|MEDIUM|HARD|EXTREME] [--song-map VULCAN|DESERT|STORM] [--midi <file>] [--artwork <file>]\n", name)
	fmt.Fprintf(os.Stderr, "  %s analyze --in <song.wav|song.mp3> [--midi <file>]\n", name)
}
