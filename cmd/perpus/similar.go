package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-perpus/config"
	"github.com/aluiziolira/go-scrape-perpus/similarity"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newSimilarCmd() *cobra.Command {
	var (
		dataset   string
		stopwords string
		top       int
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   `similar "<title>"`,
		Short: "Rank collected thesis titles by similarity to a proposed title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(args[0])
			if title == "" {
				return fmt.Errorf("title cannot be empty")
			}

			loader := similarity.NewLoader(timeout, config.DefaultConfig().UserAgent)
			corpus, err := loader.Dataset(cmd.Context(), dataset)
			if err != nil {
				return err
			}
			stop, err := loader.Stopwords(cmd.Context(), stopwords)
			if err != nil {
				return err
			}

			matches := similarity.Rank(title, corpus, stop, top)
			printMatches(cmd.OutOrStdout(), title, matches)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataset, "dataset", "", "crawl output file (csv, xlsx, jsonl) or published CSV URL")
	cmd.Flags().StringVar(&stopwords, "stopwords", "", "stopword list file or URL, one word per line")
	cmd.Flags().IntVar(&top, "top", similarity.DefaultTop, "number of matches to show")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "download timeout for remote sources")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func printMatches(w io.Writer, title string, matches []similarity.Match) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Similar to %q", title))
	t.AppendHeader(table.Row{"#", "Score", "Band", "Judul", "NIM", "Tahun", "Penulis", "Kata sama", "File"})
	for i, m := range matches {
		t.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%.2f%%", m.Score),
			m.Band,
			m.Record.Title,
			m.Record.Identifier,
			m.Record.Year,
			m.Record.AuthorList(),
			strings.Join(m.Matching, ", "),
			similarity.PreviewURL(m.Record.DetailURL),
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
