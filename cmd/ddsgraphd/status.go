package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sambigeara/ddsgraph/pkg/graph"
	"github.com/sambigeara/ddsgraph/pkg/observability/logging"
)

const defaultStatusTicks = 50

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Faint(true)
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Run a burst of mesh activity and show the converged graph",
		RunE:  runStatus,
	}
	cmd.Flags().Int("ticks", defaultStatusTicks, "Number of mutation ticks before rendering")
	return cmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	conf, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logging.Init("warn")

	ticks, err := cmd.Flags().GetInt("ticks")
	if err != nil {
		return err
	}

	sim, err := newSimulator(conf)
	if err != nil {
		return err
	}
	defer sim.close()

	ctx := context.Background()
	for range ticks {
		if err := sim.tick(ctx); err != nil {
			return err
		}
		for _, p := range sim.parts {
			p.drain()
		}
	}

	renderStatus(cmd.OutOrStdout(), sim.parts[0].cache)
	return nil
}

func renderStatus(w io.Writer, c *graph.Cache) {
	names, namespaces := c.NodeNames()
	nodeRows := make([][]string, 0, len(names))
	for i := range names {
		nodeRows = append(nodeRows, []string{namespaces[i], names[i]})
	}
	renderSection(w, "nodes", []string{"NAMESPACE", "NAME"}, nodeRows)

	topics := c.NamesAndTypes(nil, nil)
	topicRows := make([][]string, 0, len(topics))
	for _, tt := range topics {
		topicRows = append(topicRows, []string{
			tt.Topic,
			strings.Join(tt.Types, ", "),
			strconv.Itoa(c.CountReaders(tt.Topic)),
			strconv.Itoa(c.CountWriters(tt.Topic)),
		})
	}
	renderSection(w, "topics", []string{"TOPIC", "TYPES", "READERS", "WRITERS"}, topicRows)
}

func renderSection(w io.Writer, title string, headers []string, rows [][]string) {
	fmt.Fprintln(w, titleStyle.Render(title))
	if len(rows) == 0 {
		fmt.Fprintln(w, headerStyle.Render("  (none)"))
		return
	}

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle()
		})
	fmt.Fprintln(w, t.Render())
}
