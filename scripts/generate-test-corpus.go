//go:build ignore

// Package main generates a synthetic document corpus for exercising
// askdocs builds at scale.
// Usage: go run scripts/generate-test-corpus.go -files 500 -output testdata/bench
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
)

var (
	numFiles   = flag.Int("files", 500, "Number of documents to generate")
	outputDir  = flag.String("output", "testdata/bench", "Output directory")
	paragraphs = flag.Int("paragraphs", 8, "Paragraphs per document")
	seed       = flag.Int64("seed", 42, "Random seed for reproducibility")
)

var topics = []string{
	"membership", "billing", "refunds", "opening hours", "parking",
	"equipment rental", "swimming lessons", "group bookings", "lost property",
	"accessibility", "guest passes", "locker policy", "cancellations",
}

var sentenceTemplates = []string{
	"The %s desk is staffed between %d:00 and %d:00 on weekdays.",
	"Requests about %s are usually handled within %d business days.",
	"For %s, please bring a valid photo ID and your member number.",
	"Changes to %s take effect at the start of the next billing cycle.",
	"Out-of-hours %s requests carry a fee of %d dollars.",
	"Our %s policy was last revised in %d and is reviewed annually.",
	"Members on the annual plan get priority for %s during peak season.",
	"Questions about %s can also be sent to the front office by email.",
	"Walk-in support for %s is limited to %d people at a time.",
	"The %s form is available at reception and on the website.",
}

// sentence fills a template. Every template places its single %s
// before any %d verbs, so topic always binds first.
func sentence(rng *rand.Rand, topic string) string {
	tpl := sentenceTemplates[rng.Intn(len(sentenceTemplates))]
	n := strings.Count(tpl, "%d")
	args := make([]any, 0, n+1)
	args = append(args, topic)
	for i := 0; i < n; i++ {
		args = append(args, 1+rng.Intn(20))
	}
	return fmt.Sprintf(tpl, args...)
}

func paragraph(rng *rand.Rand, topic string) string {
	count := 3 + rng.Intn(4)
	parts := make([]string, count)
	for i := range parts {
		parts[i] = sentence(rng, topic)
	}
	return strings.Join(parts, " ")
}

func document(rng *rand.Rand, id int) string {
	topic := topics[rng.Intn(len(topics))]
	var b strings.Builder
	fmt.Fprintf(&b, "# Guide %d: %s\n\n", id, topic)
	for p := 0; p < *paragraphs; p++ {
		b.WriteString(paragraph(rng, topics[rng.Intn(len(topics))]))
		b.WriteString("\n\n")
	}
	return b.String()
}

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}

	for i := 0; i < *numFiles; i++ {
		name := filepath.Join(*outputDir, fmt.Sprintf("guide-%04d.md", i))
		if err := os.WriteFile(name, []byte(document(rng, i)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("generated %d documents in %s\n", *numFiles, *outputDir)
}
