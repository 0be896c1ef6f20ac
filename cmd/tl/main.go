package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	cl "touchline/internal/cli"
	"touchline/internal/config"
	"touchline/internal/market"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type app struct {
	apiBase string
	team    string
}

func main() {
	_ = godotenv.Load()
	cfg := config.LoadCLIFromEnv()
	a := &app{apiBase: cfg.APIBaseURL, team: cfg.Team}

	root := &cobra.Command{
		Use:          "tl",
		Short:        "Touchline transfer market client",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.apiBase, "api", a.apiBase, "API base URL")
	root.PersistentFlags().StringVar(&a.team, "team", a.team, "club to act for (defaults to the saved profile)")

	root.AddCommand(
		a.newUseCmd(),
		a.newTeamsCmd(),
		a.newSquadCmd(),
		a.newListingsCmd(),
		a.newListCmd(),
		a.newUnlistCmd(),
		a.newOffersCmd(),
		a.newPlayerCmd(),
		a.newBidCmd(),
		a.newSignCmd(),
		a.newAcceptCmd(),
		a.newRejectCmd(),
		a.newCancelCmd(),
		a.newFreeAgentsCmd(),
		a.newSearchCmd(),
		a.newHistoryCmd(),
		a.newWeekCmd(),
		a.newAdvanceCmd(),
		a.newInboxCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) client() *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(a.apiBase), "/"))
}

// myTeam resolves the club from --team, TL_TEAM or the saved profile.
func (a *app) myTeam() (string, error) {
	if t := strings.TrimSpace(a.team); t != "" {
		return t, nil
	}
	p, err := cl.LoadProfile()
	if err != nil {
		return "", err
	}
	return p.Team, nil
}

func withTimeout(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), 30*time.Second)
}

func (a *app) newUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use [team]",
		Short: "Select the club you manage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			teams, err := a.client().Teams(ctx)
			if err != nil {
				return err
			}
			name := strings.Join(args, " ")
			if name == "" {
				name, err = promptOptional(fmt.Sprintf("Team [%s]", teams.UserTeam))
				if err != nil {
					return err
				}
				if name == "" {
					name = teams.UserTeam
				}
			}
			for _, t := range teams.Teams {
				if strings.EqualFold(t.Name, name) {
					if err := cl.SaveProfile(cl.Profile{Team: t.Name}); err != nil {
						return err
					}
					printSuccess(fmt.Sprintf("Now managing %s.", t.Name))
					if !t.Controlled {
						printWarn("This club is run by the computer; incoming offers for it resolve automatically.")
					}
					return nil
				}
			}
			return fmt.Errorf("unknown team %q", name)
		},
	}
}

func (a *app) newTeamsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "teams",
		Short: "List league clubs and their budgets",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			teams, err := a.client().Teams(ctx)
			if err != nil {
				return err
			}
			renderTeams(teams)
			return nil
		},
	}
}

func (a *app) newSquadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "squad [team]",
		Short: "Show a club's roster and finances",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			if name == "" {
				var err error
				if name, err = a.myTeam(); err != nil {
					return err
				}
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			team, err := a.client().Team(ctx, name)
			if err != nil {
				return err
			}
			renderSquad(team)
			return nil
		},
	}
}

func (a *app) newListingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listings [team]",
		Short: "Show players a club has for sale",
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			if name == "" {
				var err error
				if name, err = a.myTeam(); err != nil {
					return err
				}
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			listings, err := a.client().Listings(ctx, name)
			if err != nil {
				return err
			}
			renderListings(name, listings)
			return nil
		},
	}
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <player_id>",
		Short: "Put one of your players up for sale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := a.myTeam()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := a.client().ListForSale(ctx, team, args[0]); err != nil {
				return err
			}
			printSuccess("Player listed. Foreign clubs will respond after next week's resolution.")
			return nil
		},
	}
}

func (a *app) newUnlistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlist <player_id>",
		Short: "Take a player off the sale list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := a.myTeam()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := a.client().Unlist(ctx, team, args[0]); err != nil {
				return err
			}
			printSuccess("Player unlisted. Pending offers for the player were withdrawn.")
			return nil
		},
	}
}

func (a *app) newOffersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "offers",
		Short: "Show pending offers involving your club",
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := a.myTeam()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			offers, err := a.client().PendingOffers(ctx, team)
			if err != nil {
				return err
			}
			renderOffers(team, offers)
			return nil
		},
	}
}

func (a *app) newPlayerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "player <player_id>",
		Short: "Show pending offers for one player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := a.client().OffersForPlayer(ctx, args[0])
			if err != nil {
				return err
			}
			if out.Rejected {
				printWarn("This player has turned down too many approaches and draws no new interest.")
			}
			renderOffers("", out.Offers)
			return nil
		},
	}
}

func (a *app) newBidCmd() *cobra.Command {
	var fee, wage string
	var years int
	cmd := &cobra.Command{
		Use:   "bid <player_id>",
		Short: "Bid for a player at another club",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := a.myTeam()
			if err != nil {
				return err
			}
			if fee == "" {
				if fee, err = promptAmount("Fee (millions)"); err != nil {
					return err
				}
			}
			if wage == "" {
				if wage, err = promptAmount("Weekly wage (millions)"); err != nil {
					return err
				}
			}
			if years == 0 {
				if years, err = promptInt("Contract years", 1); err != nil {
					return err
				}
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			offer, err := a.client().SubmitTransferOffer(ctx, team, args[0], fee, wage, years)
			if err != nil {
				return explain(err)
			}
			renderOfferCard("Offer submitted", offer)
			return nil
		},
	}
	cmd.Flags().StringVar(&fee, "fee", "", "transfer fee in millions, e.g. 12.5")
	cmd.Flags().StringVar(&wage, "wage", "", "weekly wage in millions, e.g. 0.08")
	cmd.Flags().IntVar(&years, "years", 0, "contract length in years")
	return cmd
}

func (a *app) newSignCmd() *cobra.Command {
	var wage string
	var years int
	cmd := &cobra.Command{
		Use:   "sign <player_id>",
		Short: "Offer a contract to a free agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := a.myTeam()
			if err != nil {
				return err
			}
			if wage == "" {
				if wage, err = promptAmount("Weekly wage (millions)"); err != nil {
					return err
				}
			}
			if years == 0 {
				if years, err = promptInt("Contract years", 1); err != nil {
					return err
				}
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			offer, err := a.client().SubmitFreeAgentOffer(ctx, team, args[0], wage, years)
			if err != nil {
				return explain(err)
			}
			renderOfferCard("Contract offered", offer)
			return nil
		},
	}
	cmd.Flags().StringVar(&wage, "wage", "", "weekly wage in millions")
	cmd.Flags().IntVar(&years, "years", 0, "contract length in years")
	return cmd
}

func (a *app) newAcceptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accept <offer_id>",
		Short: "Accept an incoming offer for one of your players",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			rec, err := a.client().AcceptOffer(ctx, args[0])
			if err != nil {
				return explain(err)
			}
			printSuccess(fmt.Sprintf("%s sold to %s for %s.", rec.PlayerName, rec.To, formatMillions(rec.FeeMicros)))
			return nil
		},
	}
}

func (a *app) newRejectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reject <offer_id>",
		Short: "Turn down an incoming offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := a.client().RejectOffer(ctx, args[0]); err != nil {
				return explain(err)
			}
			printSuccess("Offer rejected.")
			return nil
		},
	}
}

func (a *app) newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <offer_id>",
		Short: "Withdraw one of your pending offers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			team, err := a.myTeam()
			if err != nil {
				return err
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			if err := a.client().CancelOffer(ctx, team, args[0]); err != nil {
				return explain(err)
			}
			printSuccess("Offer withdrawn.")
			return nil
		},
	}
}

func (a *app) newFreeAgentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "free-agents",
		Short:   "List unattached players",
		Aliases: []string{"fa"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			players, err := a.client().FreeAgents(ctx)
			if err != nil {
				return err
			}
			accent.Println("\n== FREE AGENTS ==")
			renderPlayers(players)
			return nil
		},
	}
}

func (a *app) newSearchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "Find players by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			matches, err := a.client().SearchPlayers(ctx, strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			renderMatches(matches)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum results")
	return cmd
}

func (a *app) newHistoryCmd() *cobra.Command {
	var club string
	var limit int
	var mine bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show completed transfers",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mine {
				team, err := a.myTeam()
				if err != nil {
					return err
				}
				club = team
			}
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			recs, err := a.client().Transfers(ctx, club, limit)
			if err != nil {
				return err
			}
			renderTransfers(recs)
			return nil
		},
	}
	cmd.Flags().StringVar(&club, "club", "", "only transfers involving this club")
	cmd.Flags().BoolVar(&mine, "mine", false, "only transfers involving your club")
	cmd.Flags().IntVar(&limit, "limit", 25, "maximum rows")
	return cmd
}

func (a *app) newWeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "week",
		Short: "Show the current league week",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			w, err := a.client().Week(ctx)
			if err != nil {
				return err
			}
			printInfo(fmt.Sprintf("Season %d, week %d (week %d overall).", w.Season, w.WeekOfSeason, w.Week))
			return nil
		},
	}
}

func (a *app) newAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Advance one week and resolve due offers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			out, err := a.client().AdvanceWeek(ctx, "")
			if err != nil {
				return err
			}
			renderWeekReport(out)
			return nil
		},
	}
}

func (a *app) newInboxCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Show recent notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd)
			defer cancel()
			msgs, err := a.client().Notifications(ctx, limit)
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				printInfo("No notifications.")
				return nil
			}
			for _, m := range msgs {
				fmt.Printf("%s  %s\n", neutral.Sprint(m.At.Local().Format("Jan 02 15:04")), m.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum messages")
	return cmd
}

// explain turns API validation errors into a short hint.
func explain(err error) error {
	var apiErr *cl.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Status {
	case 400:
		return fmt.Errorf("not allowed: %s", apiErr.Message)
	case 404:
		return fmt.Errorf("not found: %s", apiErr.Message)
	case 409:
		return fmt.Errorf("conflict: %s", apiErr.Message)
	}
	return err
}

func formatMillions(micros int64) string {
	return market.FormatMillions(micros) + "M"
}
