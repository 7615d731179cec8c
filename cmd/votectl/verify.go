package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"vote-admin/keys"
	"vote-admin/models"
	"vote-admin/storage"
)

var verifyElection string

func init() {
	verifyCmd.Flags().StringVar(&verifyElection, "election", "", "exported election file that must match the election data")
	rootCmd.AddCommand(verifyCmd)
}

var verifyCmd = &cobra.Command{
	Use:   "verify <election-data.json>",
	Short: "Check that saved election data is consistent with its recovery phrase",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bundle, err := storage.LoadElectionData(args[0])
		if err != nil {
			return err
		}
		if err := verifyBundle(bundle); err != nil {
			return err
		}

		if verifyElection != "" {
			exported, err := storage.LoadElection(verifyElection)
			if err != nil {
				return err
			}
			if err := sameElection(&bundle.Election, exported); err != nil {
				return errors.Wrapf(err, "%s does not match %s", verifyElection, args[0])
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "election %s: %d candidates verified\n", bundle.Election.ID, len(bundle.Election.Candidates))
		return nil
	},
}

// verifyBundle re-derives every candidate address from the recovery phrase.
func verifyBundle(bundle *models.ElectionData) error {
	e := &bundle.Election
	if e.ID != models.ElectionID(e.Name) {
		return errors.Errorf("election id %q does not match name %q", e.ID, e.Name)
	}
	if e.StartHeight >= e.EndHeight {
		return errors.Errorf("empty height range [%d, %d)", e.StartHeight, e.EndHeight)
	}
	if len(e.Candidates) == 0 {
		return errors.New("election has no candidates")
	}
	if !e.Finalized() {
		return errors.New("election has no roots")
	}

	seed, err := keys.SeedFromPhrase(bundle.Seed)
	if err != nil {
		return err
	}
	return keys.VerifyCandidates(seed, e.Candidates)
}

func sameElection(a, b *models.Election) error {
	switch {
	case a.ID != b.ID:
		return errors.Errorf("id %q != %q", a.ID, b.ID)
	case a.StartHeight != b.StartHeight || a.EndHeight != b.EndHeight:
		return errors.New("height range differs")
	case a.Nf != b.Nf:
		return errors.New("nullifier root differs")
	case a.Cmx != b.Cmx:
		return errors.New("commitment root differs")
	case len(a.Candidates) != len(b.Candidates):
		return errors.New("candidate count differs")
	}
	for i := range a.Candidates {
		if a.Candidates[i] != b.Candidates[i] {
			return errors.Errorf("candidate %d differs", i)
		}
	}
	return nil
}
