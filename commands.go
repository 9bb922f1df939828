package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"dictation/internal/app"
	"dictation/internal/config"
	"dictation/internal/history"
	"dictation/internal/record"
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe FILE",
	Short: "Transcribe an audio file to a .txt file",
	Long: `Transcribe an existing recording. Files that are not WAV are converted
with ffmpeg first, so ffmpeg must be on PATH for other formats.`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show usage statistics and estimated cost",
	Args:  cobra.NoArgs,
	RunE:  runUsage,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent transcriptions",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the settings file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default settings file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY VALUE",
	Short: "Change one setting and save it",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := settingsPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	transcribeCmd.Flags().StringP("output", "o", "", "output .txt path (default <name>.txt in the working directory)")

	usageCmd.Flags().Bool("reset", false, "reset all usage counters")

	historyCmd.Flags().Int("limit", 10, "number of entries to show")
	historyCmd.Flags().Bool("clear", false, "delete all entries")
	historyCmd.Flags().String("delete", "", "delete the entry with this id")
	historyCmd.Flags().Bool("store-text", true, "keep full text in new entries (false stores only word counts)")

	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd, configShowCmd, configSetCmd, configPathCmd)
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	store, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	cfg := store.Snapshot()
	loadEnv(filepath.Dir(store.Path()))
	key, err := apiKeyFor(cmd, cfg)
	if err != nil {
		return err
	}
	logger, _, err := app.NewLogger(cfg.LogLevel, "")
	if err != nil {
		return err
	}

	out, _ := cmd.Flags().GetString("output")
	written, err := app.TranscribeFile(cmd.Context(), cfg, key, args[0], out, logger)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), written)
	return nil
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := record.Devices()
	if err != nil {
		return err
	}
	table := newTable(cmd.OutOrStdout(), "Index", "Name", "Channels", "Sample rate", "Default")
	for _, d := range devices {
		def := ""
		if d.Default {
			def = "*"
		}
		table.Append([]string{
			strconv.Itoa(d.Index),
			d.Name,
			strconv.Itoa(d.Channels),
			humanize.SIWithDigits(d.SampleRate, 1, "Hz"),
			def,
		})
	}
	table.Render()
	return nil
}

func runUsage(cmd *cobra.Command, args []string) error {
	store, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		if err := store.Update(func(c *config.Config) { c.Stats = config.UsageStats{} }); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "usage counters reset")
		return nil
	}

	cfg := store.Snapshot()
	st := cfg.Stats
	cost := st.EstimatedCost(cfg.EnhanceText)

	table := newTable(cmd.OutOrStdout(), "Metric", "Value")
	table.AppendBulk([][]string{
		{"Requests", humanize.Comma(int64(st.TotalRequests))},
		{"Words", humanize.Comma(int64(st.TotalWords))},
		{"Minutes", fmt.Sprintf("%.1f", st.TotalMinutes)},
		{"Words per minute", strconv.Itoa(st.WordsPerMinute())},
		{"Active days", strconv.Itoa(len(st.ActiveDays))},
		{"Active weeks", strconv.Itoa(st.WeeksActive())},
		{"First use", since(st.FirstUseDate)},
		{"Last use", since(st.LastUseDate)},
		{"Transcription cost", fmt.Sprintf("$%.4f", cost.Transcription)},
		{"Enhancement cost", fmt.Sprintf("$%.4f", cost.Enhancement)},
		{"Total cost", fmt.Sprintf("$%.4f", cost.Total)},
	})
	table.Render()
	return nil
}

func since(date string) string {
	if date == "" {
		return "-"
	}
	t, err := time.ParseInLocation("2006-01-02", date, time.Local)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s (%s)", date, humanize.Time(t))
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	h, err := history.Load(history.DefaultPath(filepath.Dir(path)))
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if wipe, _ := cmd.Flags().GetBool("clear"); wipe {
		if err := h.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(w, "history cleared")
		return nil
	}
	if id, _ := cmd.Flags().GetString("delete"); id != "" {
		ok, err := h.Delete(id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no history entry %s", id)
		}
		fmt.Fprintln(w, "deleted", id)
		return nil
	}
	if f := cmd.Flags().Lookup("store-text"); f != nil && f.Changed {
		full, _ := cmd.Flags().GetBool("store-text")
		if err := h.SetPrivacy(full); err != nil {
			return err
		}
		fmt.Fprintln(w, "store full text:", full)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	entries := h.Recent(limit)
	if len(entries) == 0 {
		fmt.Fprintln(w, "no history")
		return nil
	}
	table := newTable(w, "ID", "When", "Words", "Duration", "Language", "Text")
	for _, e := range entries {
		table.Append([]string{
			shortID(e.ID),
			humanize.Time(e.Timestamp),
			strconv.Itoa(e.WordCount),
			fmt.Sprintf("%.1fs", e.DurationSeconds),
			e.Language,
			clip(e.Text, 60),
		})
	}
	table.Render()
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := settingsPath()
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.SaveDefault(path); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	store, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(store.Snapshot(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	store, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	key, value := args[0], args[1]
	check := store.Snapshot()
	if err := config.SetField(&check, key, value); err != nil {
		return err
	}
	if err := store.Update(func(c *config.Config) { _ = config.SetField(c, key, value) }); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
	return nil
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetCenterSeparator("|")
	table.SetColumnSeparator("|")
	table.SetRowSeparator("-")
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	return table
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func clip(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
