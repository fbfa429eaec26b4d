package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/promoter-service/internal/model"
	"github.com/sells-group/promoter-service/internal/pagination"
	"github.com/sells-group/promoter-service/internal/tabular"
)

var promotersCmd = &cobra.Command{
	Use:   "promoters",
	Short: "Query and update promoter records",
}

// filterFlags are the listing filters shared by list, analytics and export.
type filterFlags struct {
	search         string
	status         string
	documentStatus string
	overallStatus  string
	workLocation   string
	hasContracts   string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.search, "search", "", "match English name, Arabic name or ID card number")
	cmd.Flags().StringVar(&f.status, "status", "", "promoter status (active, inactive, pending, suspended or all)")
	cmd.Flags().StringVar(&f.documentStatus, "document-status", "", "document status (expired, expiring, valid or all)")
	cmd.Flags().StringVar(&f.overallStatus, "overall-status", "", "analytics overall status")
	cmd.Flags().StringVar(&f.workLocation, "work-location", "", "work location")
	cmd.Flags().StringVar(&f.hasContracts, "has-contracts", "", "true or false")
}

func (f *filterFlags) filters() (model.PromoterFilters, error) {
	values := map[string]string{
		"status":          f.status,
		"document_status": f.documentStatus,
		"overall_status":  f.overallStatus,
		"work_location":   f.workLocation,
		"has_contracts":   f.hasContracts,
	}
	return model.ParseFilters(func(key string) string { return values[key] })
}

var (
	listPage    int
	listLimit   int
	listFilters filterFlags
)

var promotersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List one page of promoters with active contract counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := listFilters.filters()
		if err != nil {
			return err
		}
		if err := pagination.CheckLimit(listLimit); err != nil {
			return err
		}
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		res := env.Service.List(cmd.Context(), pagination.New(listPage, listLimit), listFilters.search, filters)
		if err := printResult(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if res.Error != nil {
			return res.Error
		}
		return nil
	},
}

var (
	analyticsPage    int
	analyticsLimit   int
	analyticsFilters filterFlags
)

var promotersAnalyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "List one page of promoters with document and contract analytics",
	RunE: func(cmd *cobra.Command, args []string) error {
		filters, err := analyticsFilters.filters()
		if err != nil {
			return err
		}
		if err := pagination.CheckLimit(analyticsLimit); err != nil {
			return err
		}
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Analytics(cmd.Context(), pagination.New(analyticsPage, analyticsLimit), analyticsFilters.search, filters)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res)
	},
}

var promotersStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show promoter performance statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		stats, err := env.Service.PerformanceStats(cmd.Context())
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), stats)
	},
}

var promotersSearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search promoters by name or ID card number",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res)
	},
}

var expiringDays int

var promotersExpiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "List promoters whose ID card or passport expires soon",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.ExpiringDocuments(cmd.Context(), expiringDays)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res)
	},
}

var (
	exportOut     string
	exportFormat  string
	exportFilters filterFlags
)

var promotersExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export matching promoters to CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := fileFormat(exportFormat, exportOut)
		if err != nil {
			return err
		}
		filters, err := exportFilters.filters()
		if err != nil {
			return err
		}
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		var buf bytes.Buffer
		switch format {
		case "csv":
			out, err := env.Service.ExportCSV(cmd.Context(), exportFilters.search, filters)
			if err != nil {
				return err
			}
			buf.WriteString(out)
		case "xlsx":
			if err := env.Service.ExportXLSX(cmd.Context(), &buf, exportFilters.search, filters); err != nil {
				return err
			}
		}

		if err := os.WriteFile(exportOut, buf.Bytes(), 0o644); err != nil {
			return eris.Wrapf(err, "write %s", exportOut)
		}
		zap.L().Info("export written", zap.String("path", exportOut), zap.String("format", format), zap.Int("bytes", buf.Len()))
		return nil
	},
}

var (
	importPath string
	importUser string
)

var promotersImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk import promoters from a CSV or XLSX file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(importUser) == "" {
			return eris.New("--user is required")
		}
		rows, err := readImportFile(cmd, importPath)
		if err != nil {
			return err
		}
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Service.ImportCSV(cmd.Context(), rows, importUser)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res)
	},
}

func readImportFile(cmd *cobra.Command, path string) ([]tabular.Record, error) {
	format, err := fileFormat("", path)
	if err != nil {
		return nil, err
	}
	if format == "xlsx" {
		return tabular.ReadXLSX(path, tabular.XLSXOptions{})
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return tabular.ReadCSV(cmd.Context(), f, tabular.CSVOptions{TrimSpace: true})
}

var (
	statusIDs   []string
	statusValue string
)

var promotersStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Set the status of one or more promoters",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateIDs(statusIDs); err != nil {
			return err
		}
		status, err := model.ParseStatus(statusValue)
		if err != nil {
			return err
		}
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		if len(statusIDs) == 1 {
			if err := env.Service.UpdateStatus(cmd.Context(), statusIDs[0], status); err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), map[string]any{"updated": 1, "status": status})
		}
		n, err := env.Service.BulkUpdateStatus(cmd.Context(), statusIDs, status)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), map[string]any{"updated": n, "status": status})
	},
}

var deleteIDs []string

var promotersDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete promoters and their dependent records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateIDs(deleteIDs); err != nil {
			return err
		}
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Service.Delete(cmd.Context(), deleteIDs)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), map[string]int64{"deleted": n})
	},
}

var promotersGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one promoter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateIDs(args); err != nil {
			return err
		}
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		p, err := env.Service.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), p)
	},
}

var promotersCVCmd = &cobra.Command{
	Use:   "cv <id>",
	Short: "Show a promoter's skills, experience, education and documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateIDs(args); err != nil {
			return err
		}
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		cv, err := env.Service.CVData(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), cv)
	},
}

var promotersActivityCmd = &cobra.Command{
	Use:   "activity <id>",
	Short: "Show a promoter's contract count and latest contracts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateIDs(args); err != nil {
			return err
		}
		env, err := initEnv(cmd.Context(), "cli", false)
		if err != nil {
			return err
		}
		defer env.Close()

		sum, err := env.Service.ActivitySummary(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), sum)
	},
}

// fileFormat resolves csv or xlsx from an explicit format or the file
// extension.
func fileFormat(explicit, path string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(explicit))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch format {
	case "csv", "xlsx":
		return format, nil
	case "":
		return "csv", nil
	}
	return "", eris.Errorf("unsupported file format %q (want csv or xlsx)", format)
}

func validateIDs(ids []string) error {
	if len(ids) == 0 {
		return eris.New("at least one --id is required")
	}
	for _, id := range ids {
		if err := uuid.Validate(id); err != nil {
			return eris.Errorf("invalid promoter id %q", id)
		}
	}
	return nil
}

func init() {
	promotersListCmd.Flags().IntVar(&listPage, "page", 1, "page number (1-based)")
	promotersListCmd.Flags().IntVar(&listLimit, "limit", pagination.DefaultLimit, "rows per page")
	listFilters.register(promotersListCmd)

	promotersAnalyticsCmd.Flags().IntVar(&analyticsPage, "page", 1, "page number (1-based)")
	promotersAnalyticsCmd.Flags().IntVar(&analyticsLimit, "limit", pagination.DefaultLimit, "rows per page")
	analyticsFilters.register(promotersAnalyticsCmd)

	promotersExpiringCmd.Flags().IntVar(&expiringDays, "days", 0, "look-ahead in days (default from config)")

	promotersExportCmd.Flags().StringVar(&exportOut, "out", "", "output file path")
	promotersExportCmd.Flags().StringVar(&exportFormat, "format", "", "csv or xlsx (default from --out extension)")
	exportFilters.register(promotersExportCmd)
	_ = promotersExportCmd.MarkFlagRequired("out")

	promotersImportCmd.Flags().StringVar(&importPath, "csv", "", "CSV or XLSX file to import")
	promotersImportCmd.Flags().StringVar(&importUser, "user", "", "id of the importing user")
	_ = promotersImportCmd.MarkFlagRequired("csv")

	promotersStatusCmd.Flags().StringSliceVar(&statusIDs, "id", nil, "promoter id (repeatable)")
	promotersStatusCmd.Flags().StringVar(&statusValue, "status", "", "new status")
	_ = promotersStatusCmd.MarkFlagRequired("status")

	promotersDeleteCmd.Flags().StringSliceVar(&deleteIDs, "id", nil, "promoter id (repeatable)")

	promotersCmd.AddCommand(
		promotersListCmd,
		promotersAnalyticsCmd,
		promotersStatsCmd,
		promotersSearchCmd,
		promotersExpiringCmd,
		promotersExportCmd,
		promotersImportCmd,
		promotersStatusCmd,
		promotersDeleteCmd,
		promotersGetCmd,
		promotersCVCmd,
		promotersActivityCmd,
	)
	rootCmd.AddCommand(promotersCmd)
}
