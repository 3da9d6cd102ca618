package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/facematch"
	"github.com/spf13/cobra"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage identities",
}

var identityCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an identity",
	Long: `Create a new identity that can enroll faces and check in.

With --organization the identity also joins the named organization, which is
created if it does not exist yet.

Examples:
  face-attendance identity create --name "박지훈" --org-type company
  face-attendance identity create --name "Jane Doe" --org-type school --organization "Hanbit High"`,
	Args: cobra.NoArgs,
	RunE: runIdentityCreate,
}

var identityShowCmd = &cobra.Command{
	Use:   "show <identity-id>",
	Short: "Show an identity with its enrollment and last check-in",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentityShow,
}

func init() {
	rootCmd.AddCommand(identityCmd)
	identityCmd.AddCommand(identityCreateCmd)
	identityCmd.AddCommand(identityShowCmd)

	identityCreateCmd.Flags().String("name", "", "Display name (required)")
	identityCreateCmd.Flags().String("org-type", "", "Organization type, e.g. company or school (required)")
	identityCreateCmd.Flags().String("organization", "", "Organization to join")
	_ = identityCreateCmd.MarkFlagRequired("name")
	_ = identityCreateCmd.MarkFlagRequired("org-type")
}

func runIdentityCreate(cmd *cobra.Command, args []string) error {
	name := facematch.NormalizePersonName(mustGetString(cmd, "name"))
	orgType := mustGetString(cmd, "org-type")
	organization := facematch.NormalizePersonName(mustGetString(cmd, "organization"))
	if name == "" {
		return errors.New("--name must not be blank")
	}

	cfg := config.Load()
	pool, err := openDatabase(cmd.ErrOrStderr(), cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	ctx := context.Background()
	identities, err := database.GetIdentityWriter(ctx)
	if err != nil {
		return err
	}

	identity, err := identities.CreateIdentity(ctx, name, orgType)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}
	fmt.Printf("Created identity %d: %s (%s)\n", identity.ID, identity.Name, identity.OrganizationType)

	if organization != "" {
		m, err := postgres.NewMembershipRepository(pool).Join(ctx, identity.ID, organization)
		if err != nil {
			return fmt.Errorf("failed to join organization: %w", err)
		}
		fmt.Printf("Joined organization %q (ID %d)\n", organization, m.OrganizationID)
	}

	fmt.Printf("\nNext: face-attendance enroll %d <image files...>\n", identity.ID)
	return nil
}

func runIdentityShow(cmd *cobra.Command, args []string) error {
	identityID, err := parseIdentityID(args[0])
	if err != nil {
		return err
	}

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

	enrollments, err := database.GetEnrollmentReader(ctx)
	if err != nil {
		return err
	}
	count, err := enrollments.CountEmbeddings(ctx, identityID)
	if err != nil {
		return fmt.Errorf("failed to count embeddings: %w", err)
	}

	records, err := database.GetAttendanceReader(ctx)
	if err != nil {
		return err
	}
	total, err := records.CountByIdentity(ctx, identityID)
	if err != nil {
		return fmt.Errorf("failed to count check-ins: %w", err)
	}
	latest, err := records.LatestByIdentity(ctx, identityID)
	if err != nil {
		return fmt.Errorf("failed to load last check-in: %w", err)
	}

	fmt.Printf("Identity %d\n", identity.ID)
	fmt.Printf("  Name:           %s\n", identity.Name)
	fmt.Printf("  Org type:       %s\n", identity.OrganizationType)
	fmt.Printf("  Enrolled faces: %d\n", count)
	fmt.Printf("  Check-ins:      %d\n", total)
	if latest != nil {
		loc := cfg.Attendance.Location()
		fmt.Printf("  Last check-in:  %s (similarity %.4f)\n",
			latest.CheckInTime.In(loc).Format("2006-01-02 15:04:05 -07:00"), latest.Similarity)
	}
	return nil
}

// requireIdentity loads an identity from the registered backend and fails if it does not exist.
func requireIdentity(ctx context.Context, identityID int64) (*database.Identity, error) {
	identities, err := database.GetIdentityReader(ctx)
	if err != nil {
		return nil, err
	}
	identity, err := identities.GetIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}
	if identity == nil {
		return nil, fmt.Errorf("identity %d not found", identityID)
	}
	return identity, nil
}
