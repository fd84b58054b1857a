package main

import (
	"context"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"legal-explainer/internal/analysis"
	"legal-explainer/internal/helper"
	"legal-explainer/internal/intake"
	"legal-explainer/internal/models"
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain a single PDF and print the result",
	RunE:  runExplain,
}

func init() {
	explainCmd.Flags().String("file", "", "path to the PDF document")
	explainCmd.Flags().Bool("speak", false, "read the explanation aloud when done")
	explainCmd.Flags().Bool("json", false, "print the result as JSON")
	_ = explainCmd.MarkFlagRequired("file")
}

func runExplain(cmd *cobra.Command, _ []string) error {
	filePath, _ := cmd.Flags().GetString("file")
	speak, _ := cmd.Flags().GetBool("speak")
	asJSON, _ := cmd.Flags().GetBool("json")

	if err := appConfig.Gemini.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, models.MsgConfigError)
		return err
	}

	doc, err := readDocument(filePath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), terminationSignals...)
	defer stop()

	a := newApp(appConfig, speak)
	exp, err := a.pipeline.Run(ctx, doc)
	if err != nil {
		fmt.Fprintln(os.Stderr, failureMessage(err))
		return err
	}

	if exp.Warning != "" {
		fmt.Fprintln(os.Stderr, exp.Warning)
	}
	if asJSON {
		helper.PrettyPrint(exp)
	} else {
		fmt.Println(exp.Result)
	}

	if speak && exp.Outcome == models.OutcomeSuccess {
		readAloud(ctx, a, exp.Result)
	}
	return nil
}

// readDocument loads path the way a browser file picker would describe it.
func readDocument(path string) (models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Document{}, errors.Wrapf(err, "read %s", path)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mediaType
	}
	return models.Document{
		Name:     filepath.Base(path),
		Size:     int64(len(data)),
		MimeType: mimeType,
		Content:  data,
	}, nil
}

func failureMessage(err error) string {
	if rej, ok := intake.AsRejection(err); ok {
		return rej.Message()
	}
	if errors.Is(err, analysis.ErrEmptyExtraction) {
		return models.MsgEmptyExtraction
	}
	return fmt.Sprintf(models.MsgProcessFailed, err.Error())
}

// readAloud blocks until the narration ends or ctx is cancelled.
func readAloud(ctx context.Context, a *app, text string) {
	select {
	case <-a.engine.VoicesReady():
	case <-ctx.Done():
		return
	}

	a.narrator.SetEnabled(true)
	a.narrator.Speak(text)

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for a.narrator.Active() {
		select {
		case <-ctx.Done():
			a.narrator.Stop()
			return
		case <-ticker.C:
		}
	}
	log.Debug().Msg("Narration finished")
}
