package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/plsync/plsync/downloader"
	"github.com/plsync/plsync/engine"
	"github.com/plsync/plsync/executor"
	"github.com/plsync/plsync/library"
	"github.com/plsync/plsync/playlist"
	"github.com/plsync/plsync/processor"
	"github.com/plsync/plsync/util"
	"github.com/plsync/plsync/util/anchor"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func init() {
	cmdRoot.AddCommand(cmdSync())
}

func cmdSync() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sync PLAYLIST_URL PLAYLIST_DIRECTORY",
		Short:        "Synchronize a remote playlist to a local directory",
		SilenceUsage: true,
		Args:         cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				preserveDeleted = util.ErrWrap(false)(cmd.Flags().GetBool("preserve-deleted"))
				noConfirm       = util.ErrWrap(false)(cmd.Flags().GetBool("no-confirm"))
				noRename        = util.ErrWrap(false)(cmd.Flags().GetBool("no-rename"))
				concurrency     = util.ErrWrap(4)(cmd.Flags().GetInt("concurrency"))
				loudness        = util.ErrWrap(-20.0)(cmd.Flags().GetFloat64("loudness"))
				timeout         = util.ErrWrap(10*time.Minute)(cmd.Flags().GetDuration("timeout"))
			)
			cmd.Flags().VisitAll(func(flag *pflag.Flag) {
				logger.Debug("flag", "name", flag.Name, "value", flag.Value.String())
			})

			dir, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}

			logger.Info("reading remote playlist", "url", args[0])
			remote, err := playlist.Fetch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			logger.Info("scanning local library", "dir", dir)
			local, untracked, err := library.Scan(dir)
			if err != nil {
				return err
			}

			plan, err := engine.Compute(remote.Tracks, local, untracked, engine.Options{
				PreserveDeleted: preserveDeleted,
				NoRename:        noRename,
			})
			if err != nil {
				return err
			}
			plan.PlaylistTitle = util.First(remote.Title, args[0])
			plan.Dir = dir

			fmt.Print(engine.Render(plan))
			if plan.Empty() {
				return nil
			}

			if !noConfirm && !confirm() {
				fmt.Println("Aborting.")
				return nil
			}

			media := downloader.YouTubeDL{}
			transcoder := processor.FFmpeg{}
			report := executor.Apply(cmd.Context(), plan, executor.Pipeline{
				Fetcher:    media,
				Transcoder: transcoder,
				Normalizer: transcoder,
				Tagger:     processor.ID3{},
				Artwork:    media,
				Scaler:     processor.Artwork{},
			}, executor.Config{
				Concurrency: concurrency,
				Loudness:    loudness,
				Timeout:     timeout,
				Logger:      logger,
				Status:      anchor.New(),
			})

			fmt.Println(report)
			if failed := report.Failed(); failed > 0 {
				return fmt.Errorf("%w: %d items", executor.ErrPartial, failed)
			}
			fmt.Println("synchronization complete")
			return nil
		},
	}
	cmd.Flags().Bool("preserve-deleted", false, "Keep local files whose remote counterpart vanished")
	cmd.Flags().Bool("no-confirm", false, "Skip the confirmation prompt")
	cmd.Flags().Bool("no-rename", false, "Do not rename local files")
	cmd.Flags().IntP("concurrency", "c", 4, "Number of concurrent downloads")
	cmd.Flags().Float64("loudness", -20, "Loudness normalization target (LUFS)")
	cmd.Flags().Duration("timeout", 10*time.Minute, "Timeout per external download/transcode call")
	return cmd
}

func confirm() bool {
	fmt.Println("Please read the above carefully before continuing.")
	fmt.Println("The above changes will be applied if you choose to continue.")
	fmt.Print(`If you would like to continue, type "yes" (only "yes" will be accepted to continue): `)

	response, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
