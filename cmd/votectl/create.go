package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vote-admin/ledger"
	"vote-admin/models"
	"vote-admin/service"
	"vote-admin/storage"
)

type createOptions struct {
	template          string
	name              string
	start             uint32
	end               uint32
	question          string
	choices           []string
	choicesFile       string
	signatureRequired bool
	out               string
	bundle            string
}

var createOpts createOptions

func init() {
	f := createCmd.Flags()
	f.StringVar(&createOpts.template, "template", "", "read the election template from a JSON file")
	f.StringVar(&createOpts.name, "name", "", "election name")
	f.Uint32Var(&createOpts.start, "start", 0, "first block height of the election (inclusive)")
	f.Uint32Var(&createOpts.end, "end", 0, "block height where the election ends (exclusive)")
	f.StringVar(&createOpts.question, "question", "", "question put to voters")
	f.StringArrayVar(&createOpts.choices, "choice", nil, "candidate label, repeat once per candidate")
	f.StringVar(&createOpts.choicesFile, "choices-file", "", "file with one candidate label per line")
	f.BoolVar(&createOpts.signatureRequired, "signature-required", false, "require ballots to be signed")
	f.StringVar(&createOpts.out, "out", "", "also export the public election definition to this file")
	f.StringVar(&createOpts.bundle, "bundle", "", "write the election data, including the recovery phrase, to this file instead of stdout")

	rootCmd.AddCommand(createCmd)
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Bootstrap a new election",
	Long: `Bootstrap a new election from a template and print the election data,
including the recovery phrase, as JSON. Keep the phrase secret: it is the only
way to recover the candidate keys.`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

func (o *createOptions) buildTemplate() (models.ElectionTemplate, error) {
	var tmpl models.ElectionTemplate
	if o.template != "" {
		raw, err := os.ReadFile(o.template)
		if err != nil {
			return tmpl, errors.Wrap(err, "failed to read template")
		}
		if err := json.Unmarshal(raw, &tmpl); err != nil {
			return tmpl, errors.Wrap(err, "failed to parse template")
		}
	}

	if o.name != "" {
		tmpl.Name = o.name
	}
	if o.start != 0 {
		tmpl.Start = o.start
	}
	if o.end != 0 {
		tmpl.End = o.end
	}
	if o.question != "" {
		tmpl.Question = o.question
	}
	if o.signatureRequired {
		tmpl.SignatureRequired = true
	}

	switch {
	case o.choicesFile != "":
		raw, err := os.ReadFile(o.choicesFile)
		if err != nil {
			return tmpl, errors.Wrap(err, "failed to read choices file")
		}
		tmpl.Choices = string(raw)
	case len(o.choices) > 0:
		tmpl.Choices = strings.Join(o.choices, "\n")
	}
	return tmpl, nil
}

func runCreate(cmd *cobra.Command, args []string) error {
	tmpl, err := createOpts.buildTemplate()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, closeSource, err := dialSource(ctx, settings)
	if err != nil {
		return errors.Wrap(err, "failed to connect to block source")
	}
	defer closeSource()

	b := service.NewBootstrapper(ledger.NewSyncer(src))
	progress := service.ProgressFunc(func(p uint32) {
		log.WithField("progress", p).Info("Bootstrap progress")
	})

	data, err := b.Create(ctx, tmpl, progress)
	if err != nil {
		return err
	}

	if createOpts.out != "" {
		if err := storage.SaveElection(createOpts.out, &data.Election); err != nil {
			return errors.Wrap(err, "failed to export election")
		}
		log.WithField("path", createOpts.out).Info("Exported election")
	}

	if createOpts.bundle != "" {
		if err := storage.SaveElectionData(createOpts.bundle, data); err != nil {
			return errors.Wrap(err, "failed to write election data")
		}
		log.WithField("path", createOpts.bundle).Info("Wrote election data")
		return nil
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return errors.Wrap(err, "failed to print election data")
	}
	return nil
}
