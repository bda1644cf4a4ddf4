package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/plsync/plsync/entity"
	"github.com/plsync/plsync/entity/id3"
	"github.com/spf13/cobra"
)

func init() {
	cmdRoot.AddCommand(cmdAdopt())
}

// adopt re-stamps identity frames onto files that follow
// the filename convention but lost their tags, e.g.
// after being restored from a backup, so the next sync
// tracks them again instead of re-downloading.
func cmdAdopt() *cobra.Command {
	return &cobra.Command{
		Use:          "adopt DIRECTORY",
		Short:        "Stamp identity metadata onto conventionally named files",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := os.ReadDir(args[0])
			if err != nil {
				return err
			}

			adopted := 0
			for _, entry := range entries {
				if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), "."+entity.TrackFormat) {
					continue
				}

				done, err := adoptFile(filepath.Join(args[0], entry.Name()), entry.Name())
				if err != nil {
					logger.Error("skipping", "file", entry.Name(), "err", err)
					continue
				}
				if done {
					adopted++
				}
			}

			fmt.Printf("%d files adopted\n", adopted)
			return nil
		},
	}
}

func adoptFile(path, name string) (bool, error) {
	position, id, artist, title, ok := entity.ParseFilename(name)
	if !ok {
		return false, nil
	}

	tag, err := id3.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return false, err
	}
	defer tag.Close()

	if tag.VideoID() != "" {
		return false, nil
	}

	tag.SetVideoID(id)
	tag.SetTrackNumber(position + 1)
	if tag.Title() == "" {
		tag.SetTitle(title)
		tag.SetAutoTitle(title)
	}
	if tag.Artist() == "" && artist != "" {
		tag.SetArtist(artist)
		tag.SetAutoArtist(artist)
	}
	if err := tag.Save(); err != nil {
		return false, err
	}

	logger.Info("adopted", "file", name, "id", id)
	return true, nil
}
