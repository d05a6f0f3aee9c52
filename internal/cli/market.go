package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/murexstreams/murex/internal/market"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Back tracks with stakes that earn per play",
	Long: `Stake money on catalog tracks. Every recorded play pays the
station's per-play rate back to a track's backers in proportion to
their stakes.`,
}

var marketInvestCmd = &cobra.Command{
	Use:   "invest <track> <amount>",
	Short: "Stake money on a track",
	Long: `Stake a dollar amount on a track. The track can be an exact id or
a search query.

Examples:
  murex market invest "glass harbor" 5.00
  murex market invest 0198f2ab 25`,
	Args: cobra.ExactArgs(2),
	RunE: runMarketInvest,
}

var marketPortfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Show your stakes and returns",
	RunE:  runMarketPortfolio,
}

func init() {
	marketCmd.AddCommand(marketInvestCmd)
	marketCmd.AddCommand(marketPortfolioCmd)
	rootCmd.AddCommand(marketCmd)
}

func runMarketInvest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cents, err := market.ParseCents(args[1])
	if err != nil {
		return err
	}

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	track, err := resolveTrack(ctx, c, args[0])
	if err != nil {
		return err
	}

	res, err := c.Invest(ctx, track.ID, cents)
	if err != nil {
		return fmt.Errorf("investment failed: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(res)
	}
	fmt.Printf("💸 Staked %s on %s — %s\n",
		market.FormatCents(res.Investment.AmountCents), track.Title, track.Artist)
	fmt.Printf("   Track total: %s\n", market.FormatCents(res.TrackTotalCents))
	return nil
}

func runMarketPortfolio(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	c, err := newRemoteClient()
	if err != nil {
		return err
	}

	positions, err := c.Portfolio(ctx)
	if err != nil {
		return fmt.Errorf("failed to get portfolio: %w", err)
	}

	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(positions)
	}

	if len(positions) == 0 {
		fmt.Println("No stakes yet. Back a track with 'murex market invest <track> <amount>'.")
		return nil
	}

	table := NewTable("TRACK", "STAKE", "SHARE", "PLAYS", "RETURN")
	var staked, earned int64
	for _, pos := range positions {
		title := pos.TrackID
		if info, err := c.Track(ctx, pos.TrackID); err == nil {
			title = fmt.Sprintf("%s — %s", info.Title, info.Artist)
		}

		share := "100%"
		if pos.TotalCents > 0 {
			share = fmt.Sprintf("%.0f%%", float64(pos.StakeCents)/float64(pos.TotalCents)*100)
		}

		table.Row(
			TruncateString(title, 50),
			market.FormatCents(pos.StakeCents),
			share,
			fmt.Sprintf("%d", pos.Plays),
			market.FormatCents(pos.ReturnCents),
		)

		staked += pos.StakeCents
		earned += pos.ReturnCents
	}
	table.Flush()

	fmt.Printf("\nTotal %s staked, %s earned\n", market.FormatCents(staked), market.FormatCents(earned))
	return nil
}
