package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"casedb-backend/export"
	"casedb-backend/models"
	"casedb-backend/repository"
	"casedb-backend/service"

	"github.com/spf13/cobra"
)

func processCmd() *cobra.Command {
	var (
		courts      []string
		listingPath string
	)
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Extract new judgments for a court and merge them into the dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if len(courts) == 0 {
				for _, c := range models.Courts {
					courts = append(courts, string(c))
				}
			}
			if listingPath != "" && len(courts) != 1 {
				return fmt.Errorf("--listing needs exactly one --court")
			}

			for _, court := range courts {
				req := service.ProcessCourtRequest{Court: court}
				if listingPath != "" {
					rows, err := readListingFile(listingPath, court)
					if err != nil {
						return err
					}
					req.Listing = rows
				}

				res, err := app.Pipeline.ProcessCourt(cmd.Context(), req)
				if err != nil {
					return fmt.Errorf("process %s: %w", court, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"%s: %d listed, %d new, %d pending, %d added, %d skipped (%d cases total)\n",
					res.Court, res.Counts.Listed, res.Counts.New, res.Counts.Pending,
					res.Counts.Added, res.Counts.Skipped, res.Dataset.Len())
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&courts, "court", nil, "court to process: subordinate or supreme (default both)")
	cmd.Flags().StringVar(&listingPath, "listing", "", "raw listing CSV with date, title and link columns")
	return cmd
}

func readListingFile(path, court string) ([]models.ListingRow, error) {
	c, err := models.ParseCourt(court)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open listing: %w", err)
	}
	defer f.Close()
	return repository.ReadListing(f, c)
}

func prefetchCmd() *cobra.Command {
	var court string
	cmd := &cobra.Command{
		Use:   "prefetch",
		Short: "Download and archive the pending judgments of a court",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			if !app.Config.FetchMissing {
				return fmt.Errorf("prefetch needs FETCH_MISSING=true")
			}
			res, err := app.Pipeline.Prefetch(cmd.Context(), service.PrefetchRequest{Court: court})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d pending, %d fetched, %d failed\n", res.Pending, res.Fetched, res.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&court, "court", string(models.CourtSupreme), "court: subordinate or supreme")
	return cmd
}

func searchCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the case dataset",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Search.Search(cmd.Context(), service.SearchRequest{Query: strings.Join(args, " ")})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			fmt.Fprintf(out, "mode: %s  key: %q  results: %d\n", res.Query.Mode, res.Query.Key, len(res.Records))
			for _, r := range res.Records {
				date := ""
				if !r.DecisionDate.IsZero() {
					date = r.DecisionDate.Format(models.DateLayout)
				}
				fmt.Fprintf(out, "%-10s  %s  [%s]\n", date, r.CaseName, strings.Join(r.OffenceTitles, ", "))
			}
			if len(res.Records) > 0 {
				fmt.Fprintf(out, "aggravation discussed: %.1f%%  mitigation discussed: %.1f%%\n",
					res.Summary.AggravationRate, res.Summary.MitigationRate)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		outPath string
		query   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export cases to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			var records []models.CaseRecord
			if query != "" {
				res, err := app.Search.Search(cmd.Context(), service.SearchRequest{Query: query})
				if err != nil {
					return err
				}
				records = res.Records
			} else {
				ds, err := app.Datasets.Load(cmd.Context())
				if err != nil {
					return err
				}
				records = ds.Records
			}

			data, err := export.WriteXLSX(records)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, data, 0644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d cases to %s\n", len(records), outPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "cases.xlsx", "output file")
	cmd.Flags().StringVarP(&query, "query", "q", "", "only export cases matching this query")
	return cmd
}
