package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/faceembed"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <identity-id> <image>...",
	Short: "Enroll face images for an identity",
	Long: `Detect the face in each image and store its embedding as a template of
the identity. Check-in compares against every enrolled template, so enrolling
several photos (different light, glasses on and off) makes verification more
reliable.

Images without a detectable face are skipped.

Examples:
  face-attendance enroll 42 front.jpg left.jpg glasses.png
  face-attendance enroll 42 photos/*.jpg --concurrency 2`,
	Args: cobra.MinimumNArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("concurrency", 4, "Number of images sent to the embedding server in parallel")
}

// enrollOutcome counts per-image results; safe for concurrent use.
type enrollOutcome struct {
	mu       sync.Mutex
	enrolled int
	noFace   []string
	failed   map[string]error
}

func (o *enrollOutcome) success() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enrolled++
}

func (o *enrollOutcome) skip(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.noFace = append(o.noFace, path)
}

func (o *enrollOutcome) fail(path string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed[path] = err
}

// enrollImage extracts the best face of one image and stores it as a template.
func enrollImage(ctx context.Context, client *faceembed.Client, store database.EnrollmentWriter, identityID int64, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read image: %w", err)
	}

	embedding, found, err := client.ExtractEmbedding(ctx, data)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}

	err = store.AddEmbedding(ctx, &database.StoredEmbedding{
		IdentityID: identityID,
		Embedding:  embedding,
		Model:      client.Model(),
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	identityID, err := parseIdentityID(args[0])
	if err != nil {
		return err
	}
	paths := args[1:]
	concurrency := max(mustGetInt(cmd, "concurrency"), 1)

	cfg := config.Load()
	pool, err := openDatabase(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	identity, err := requireIdentity(ctx, identityID)
	if err != nil {
		return err
	}
	store, err := database.GetEnrollmentWriter(ctx)
	if err != nil {
		return err
	}

	client := faceembed.NewClient(cfg.Embedding.URL, cfg.Embedding.Model, cfg.Embedding.MaxImageSize)
	fmt.Printf("Enrolling %d images for %s using %s\n", len(paths), identity.Name, cfg.Embedding.URL)

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("Enrolling"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	outcome := &enrollOutcome{failed: make(map[string]error)}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, path := range paths {
		g.Go(func() error {
			defer bar.Add(1) //nolint:errcheck

			ok, err := enrollImage(gctx, client, store, identityID, path)
			switch {
			case errors.Is(err, database.ErrDimensionMismatch):
				// wrong model on the embedding server, every image will fail the same way
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			case err != nil:
				outcome.fail(path, err)
			case !ok:
				outcome.skip(path)
			default:
				outcome.success()
			}
			return nil
		})
	}

	waitErr := g.Wait()
	_ = bar.Finish()
	fmt.Println()

	for _, path := range outcome.noFace {
		fmt.Printf("  no face: %s\n", path)
	}
	for path, err := range outcome.failed {
		fmt.Printf("  failed:  %s: %v\n", path, err)
	}
	if waitErr != nil {
		return waitErr
	}

	total, err := store.CountEmbeddings(ctx, identityID)
	if err != nil {
		return fmt.Errorf("failed to count embeddings: %w", err)
	}
	fmt.Printf("Enrolled %d of %d images (%d without a face, %d failed). %s now has %d templates.\n",
		outcome.enrolled, len(paths), len(outcome.noFace), len(outcome.failed), identity.Name, total)

	if outcome.enrolled == 0 {
		return errors.New("no image was enrolled")
	}
	return nil
}
