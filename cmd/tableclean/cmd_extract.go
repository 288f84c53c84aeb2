package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/JonMunkholm/tableclean/internal/export"
	"github.com/JonMunkholm/tableclean/internal/frame"
	"github.com/spf13/cobra"
)

func runExtract(cmd *cobra.Command, args []string) error {
	format, err := export.FormatFromPath(extractOut)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	service, closeDB, err := newService(ctx, true)
	if err != nil {
		return err
	}
	defer closeDB()

	f, err := service.LoadFrame(ctx, extractTable, "")
	if err != nil {
		return err
	}

	switch format {
	case export.FormatParquet:
		err = export.WriteParquetFile(extractOut, f)
	default:
		err = export.WriteCSVFile(extractOut, f)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows, %d columns to %s\n", f.NumRows(), f.NumColumns(), extractOut)
	return nil
}

func runSkew(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	service, closeDB, err := newService(ctx, skewTable != "")
	if err != nil {
		return err
	}
	defer closeDB()

	table, err := service.SkewTable(ctx, skewTable, skewFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if skewJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COLUMN\tSKEW")
	for _, e := range table {
		fmt.Fprintf(w, "%s\t%s\n", e.Column, frame.FormatFloat(e.Skew))
	}
	return w.Flush()
}
