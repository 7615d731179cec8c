package main

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vote-admin/storage"
)

var exportOut string

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "destination file, stdout when empty")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <election-data.json>",
	Short: "Export the public election definition from saved election data",
	Long: `Read election data written by "votectl create --bundle" and write the
public election definition, without the recovery phrase.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := storage.LoadElectionData(args[0])
		if err != nil {
			return err
		}
		if !bundle.Election.Finalized() {
			return errors.Errorf("election %q in %s has no roots", bundle.Election.ID, args[0])
		}

		if exportOut == "" {
			return storage.WriteElection(cmd.OutOrStdout(), &bundle.Election)
		}
		if err := storage.SaveElection(exportOut, &bundle.Election); err != nil {
			return err
		}
		log.WithFields(log.Fields{"election": bundle.Election.ID, "path": exportOut}).Info("Exported election")
		return nil
	},
}
