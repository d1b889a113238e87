package client

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func chatbotPath(cmd *cobra.Command, suffix string) (string, error) {
	chatbotID, err := resolveChatbotID(cmd)
	if err != nil {
		return "", err
	}
	return "/admin/chatbots/" + url.PathEscape(chatbotID) + suffix, nil
}

// windowQuery turns --from/--to into RFC 3339 query parameters. Bare dates are accepted.
func windowQuery(from, to string) (url.Values, error) {
	q := url.Values{}
	for name, raw := range map[string]string{"from": from, "to": to} {
		if raw == "" {
			continue
		}
		t, err := parseTimeFlag(raw)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
		q.Set(name, t.UTC().Format(time.RFC3339))
	}
	return q, nil
}

func parseTimeFlag(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC 3339 timestamp, got %q", raw)
	}
	return t, nil
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func StatsCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show query statistics for the selected chatbot",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := chatbotPath(cmd, "/stats")
			if err != nil {
				return err
			}
			q, err := windowQuery(from, to)
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd, true)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), withQuery(path, q))
			if err != nil {
				return fmt.Errorf("failed to load stats: %w", err)
			}
			stats, err := Decode[Stats](resp)
			if err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(stats)
			}

			fmt.Printf("Queries:        %d (%d ignored)\n", stats.Total, stats.IgnoredCount)
			fmt.Printf("Avg results:    %.2f\n", stats.AvgResultCount)
			fmt.Printf("Avg reads:      %.2f\n", stats.AvgReadCount)
			fmt.Printf("Feedback:       like=%d dislike=%d viewed=%d not_viewed=%d\n",
				stats.Feedback["like"], stats.Feedback["dislike"], stats.Feedback["viewed"], stats.Feedback["not_viewed"])
			if len(stats.TopCandidates) > 0 {
				fmt.Println("\nMost viewed:")
				for _, c := range stats.TopCandidates {
					fmt.Printf("  %5d  %s\n", c.Views, truncate(c.Question, 70))
				}
			}
			if len(stats.ZeroResults) > 0 {
				fmt.Println("\nUnanswered queries:")
				for _, z := range stats.ZeroResults {
					fmt.Printf("  %5d  %s\n", z.Count, truncate(z.Query, 70))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Window start (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (exclusive)")

	return cmd
}

func EventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect recorded queries",
	}

	cmd.AddCommand(eventsListCmd())
	cmd.AddCommand(eventsActionsCmd())
	cmd.AddCommand(eventsDeleteCmd())

	return cmd
}

func eventsListCmd() *cobra.Command {
	var (
		from, to, sessionID, contains, cursor string
		ignored, zeroResults                  string
		limit                                 int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded queries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := chatbotPath(cmd, "/events")
			if err != nil {
				return err
			}
			q, err := windowQuery(from, to)
			if err != nil {
				return err
			}
			for name, v := range map[string]string{
				"session_id":   sessionID,
				"q":            contains,
				"cursor":       cursor,
				"ignored":      ignored,
				"zero_results": zeroResults,
			} {
				if v != "" {
					q.Set(name, v)
				}
			}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}

			api, err := NewAPIClientWithCmd(cmd, true)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), withQuery(path, q))
			if err != nil {
				return fmt.Errorf("failed to list events: %w", err)
			}
			page, err := Decode[EventList](resp)
			if err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(page)
			}
			if len(page.Items) == 0 {
				fmt.Println("No events.")
			}
			for _, e := range page.Items {
				flag := ""
				if e.Ignored {
					flag = " (ignored)"
				}
				fmt.Printf("%s %s results=%d reads=%d%s\n   %s\n",
					e.ID, e.CreatedAt, e.ResultCount, e.ReadCount, flag, truncate(e.Query, 100))
			}
			if page.HasMore {
				fmt.Printf("\nMore results: --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Window start (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "Window end (exclusive)")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only events from this session")
	cmd.Flags().StringVar(&contains, "contains", "", "Only queries containing this text")
	cmd.Flags().StringVar(&ignored, "ignored", "", "Filter by ignored flag (true|false)")
	cmd.Flags().StringVar(&zeroResults, "zero-results", "", "Filter by zero-result queries (true|false)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Resume from a previous page")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Page size")

	return cmd
}

func eventsActionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "actions <event-id>",
		Short: "Show the engagement actions recorded for an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd, true)
			if err != nil {
				return err
			}
			resp, err := api.Get(cmd.Context(), "/admin/events/"+url.PathEscape(args[0])+"/actions")
			if err != nil {
				return fmt.Errorf("failed to list actions: %w", err)
			}
			actions, err := Decode[[]QueryAction](resp)
			if err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(actions)
			}
			if len(*actions) == 0 {
				fmt.Println("No actions recorded.")
			}
			for _, a := range *actions {
				fmt.Printf("%s  %-10s %s\n", a.FAQID, a.Action, a.UpdatedAt)
			}
			return nil
		},
	}
}

func eventsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event and its actions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd, true)
			if err != nil {
				return err
			}
			if _, err := api.Delete(cmd.Context(), "/admin/events/"+url.PathEscape(args[0])); err != nil {
				return fmt.Errorf("failed to delete event: %w", err)
			}
			fmt.Printf("Deleted event %s\n", args[0])
			return nil
		},
	}
}

func IgnoreCmd() *cobra.Command {
	var undo bool

	cmd := &cobra.Command{
		Use:   "ignore <query>",
		Short: "Exclude a query text from statistics",
		Long: `Marks every recorded event whose query matches the given text as ignored.
Ignored events are left out of stats. Use --undo to include them again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := chatbotPath(cmd, "/ignored-queries")
			if err != nil {
				return err
			}
			api, err := NewAPIClientWithCmd(cmd, true)
			if err != nil {
				return err
			}
			resp, err := api.Put(cmd.Context(), path, map[string]interface{}{
				"query":   args[0],
				"ignored": !undo,
			})
			if err != nil {
				return fmt.Errorf("failed to update ignored queries: %w", err)
			}
			out, err := Decode[struct {
				Affected int64 `json:"affected"`
			}](resp)
			if err != nil {
				return err
			}

			if outputJSON(cmd) {
				return printJSON(out)
			}
			fmt.Printf("%d event(s) updated\n", out.Affected)
			return nil
		},
	}

	cmd.Flags().BoolVar(&undo, "undo", false, "Include the query in statistics again")

	return cmd
}
