package main

import (
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/tableclean/internal/config"
	"github.com/spf13/cobra"
)

func runClean(cmd *cobra.Command, args []string) error {
	plan, err := config.LoadPlan(cleanPlan)
	if err != nil {
		return err
	}
	plan.Export = exportDefaults(plan.Export)

	ctx := cmd.Context()
	service, closeDB, err := newService(ctx, plan.Table != "" || plan.WriteBack != "")
	if err != nil {
		return err
	}
	defer closeDB()

	report, err := service.Run(ctx, plan)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if cleanJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	for _, line := range report.Lines {
		fmt.Fprintln(out, line)
	}
	for _, o := range report.Outliers {
		if n := len(o.Outliers); n > 0 {
			fmt.Fprintf(out, "Column %s had %d outliers replaced\n", o.Column, n)
		}
	}
	for _, e := range report.Exports {
		if e.ObjectKey != "" {
			fmt.Fprintf(out, "exported %s (uploaded to s3://%s/%s)\n", e.Path, e.Bucket, e.ObjectKey)
			continue
		}
		fmt.Fprintf(out, "exported %s\n", e.Path)
	}
	if report.WriteBack != "" {
		fmt.Fprintf(out, "wrote %d rows to %s\n", report.RowsWritten, report.WriteBack)
	}
	return nil
}
