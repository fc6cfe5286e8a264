package main

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/interview_scheduler/internal/model"
	"github.com/Freeeeeet/interview_scheduler/internal/recurrence"
	"github.com/spf13/cobra"
)

var (
	occWeekday       int
	occHour          int
	occZone          string
	occCount         int
	occInterviewType string
)

var occurrencesCmd = &cobra.Command{
	Use:   "occurrences",
	Short: "Preview the slots a weekly recurring rule would create",
	Long: "Print the UTC and local start times that a recurring slot request would produce, " +
		"using the same lead time and durations as the API.",
	RunE: runOccurrences,
}

func init() {
	occurrencesCmd.Flags().IntVar(&occWeekday, "weekday", int(time.Monday), "day of week, 0 = Sunday")
	occurrencesCmd.Flags().IntVar(&occHour, "hour", 10, "local hour, 0-23")
	occurrencesCmd.Flags().StringVar(&occZone, "zone", "UTC", "IANA time zone")
	occurrencesCmd.Flags().IntVar(&occCount, "count", 4, "number of weeks")
	occurrencesCmd.Flags().StringVar(&occInterviewType, "type", string(model.InterviewTypeDSA), "interview type (DSA or SystemDesign)")
	rootCmd.AddCommand(occurrencesCmd)
}

func runOccurrences(cmd *cobra.Command, _ []string) error {
	interviewType := model.InterviewType(occInterviewType)
	if !interviewType.Valid() {
		return fmt.Errorf("unknown interview type %q", occInterviewType)
	}

	loc, err := recurrence.LoadZone(occZone)
	if err != nil {
		return err
	}

	occurrences, err := recurrence.Weekly(time.Now(), recurrence.WeeklyRule{
		Weekday:  time.Weekday(occWeekday),
		Hour:     occHour,
		Location: loc,
		LeadTime: model.MinLeadTime,
		Count:    occCount,
		Duration: interviewType.Duration(),
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, o := range occurrences {
		fmt.Fprintf(out, "%3d  %s  %s  (%s)\n",
			i+1,
			o.StartUTC.Format(time.RFC3339),
			o.EndUTC.Format(time.RFC3339),
			o.StartUTC.In(loc).Format("Mon 02 Jan 15:04 MST"),
		)
	}
	return nil
}
