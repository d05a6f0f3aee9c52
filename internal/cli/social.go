package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/murexstreams/murex/internal/remote"
)

var socialCmd = &cobra.Command{
	Use:   "social",
	Short: "Like tracks and follow artists",
}

var socialLikeCmd = &cobra.Command{
	Use:   "like <track>",
	Short: "Like a track",
	Long:  `Like a track by id or search query.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSocialLike,
}

var socialUnlikeCmd = &cobra.Command{
	Use:   "unlike <track>",
	Short: "Remove a like",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSocialUnlike,
}

var socialFollowCmd = &cobra.Command{
	Use:   "follow <artist>",
	Short: "Follow an artist",
	Long:  `Follow an artist by id or name.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSocialFollow,
}

var socialUnfollowCmd = &cobra.Command{
	Use:   "unfollow <artist>",
	Short: "Stop following an artist",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSocialUnfollow,
}

func init() {
	socialCmd.AddCommand(socialLikeCmd)
	socialCmd.AddCommand(socialUnlikeCmd)
	socialCmd.AddCommand(socialFollowCmd)
	socialCmd.AddCommand(socialUnfollowCmd)
	rootCmd.AddCommand(socialCmd)
}

func runSocialLike(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	track, err := resolveTrack(ctx, c, strings.Join(args, " "))
	if err != nil {
		return err
	}

	info, err := c.Like(ctx, track.ID)
	if err != nil {
		return fmt.Errorf("failed to like: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(info)
	}
	fmt.Printf("♥ Liked %s — %s (%d likes)\n", info.Title, info.Artist, info.Likes)
	return nil
}

func runSocialUnlike(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	track, err := resolveTrack(ctx, c, strings.Join(args, " "))
	if err != nil {
		return err
	}

	info, err := c.Unlike(ctx, track.ID)
	if err != nil {
		return fmt.Errorf("failed to unlike: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(info)
	}
	fmt.Printf("♡ Unliked %s — %s (%d likes)\n", info.Title, info.Artist, info.Likes)
	return nil
}

func runSocialFollow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	artist, err := resolveArtist(ctx, c, strings.Join(args, " "))
	if err != nil {
		return err
	}

	info, err := c.Follow(ctx, artist.ID)
	if err != nil {
		return fmt.Errorf("failed to follow: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(info)
	}
	fmt.Printf("★ Following %s (%d followers)\n", info.Name, info.Followers)
	return nil
}

func runSocialUnfollow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	artist, err := resolveArtist(ctx, c, strings.Join(args, " "))
	if err != nil {
		return err
	}

	info, err := c.Unfollow(ctx, artist.ID)
	if err != nil {
		return fmt.Errorf("failed to unfollow: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(info)
	}
	fmt.Printf("☆ Unfollowed %s (%d followers)\n", info.Name, info.Followers)
	return nil
}

// resolveTrack finds a catalog track by exact id first, then through
// search. Several matches open a picker on a terminal, otherwise the
// first match wins.
func resolveTrack(ctx context.Context, c *remote.Client, nameOrID string) (*remote.TrackInfo, error) {
	if info, err := c.Track(ctx, nameOrID); err == nil {
		return info, nil
	} else if !remote.IsNotFoundError(err) {
		return nil, err
	}

	tracks, err := c.Tracks(ctx, nameOrID)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no track matches %q", nameOrID)
	}

	index := 0
	if len(tracks) > 1 && isTerminal() && !JSONOutput() {
		index, err = pickTrack("Which track?", tracks)
		if err != nil {
			return nil, err
		}
	}
	return c.Track(ctx, tracks[index].ID)
}

// resolveArtist finds an artist by exact id first, then through a
// track search on the name. An exact name match beats a partial one.
func resolveArtist(ctx context.Context, c *remote.Client, nameOrID string) (*remote.ArtistInfo, error) {
	if info, err := c.Artist(ctx, nameOrID); err == nil {
		return info, nil
	} else if !remote.IsNotFoundError(err) {
		return nil, err
	}

	tracks, err := c.Tracks(ctx, nameOrID)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	for _, t := range tracks {
		if strings.EqualFold(t.Artist, nameOrID) {
			return c.Artist(ctx, t.ArtistID)
		}
	}
	if len(tracks) > 0 {
		return c.Artist(ctx, tracks[0].ArtistID)
	}
	return nil, fmt.Errorf("no artist matches %q", nameOrID)
}
