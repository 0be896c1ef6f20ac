package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	cl "touchline/internal/cli"
	"touchline/internal/market"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39")).
			Padding(0, 1)
	cardTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// promptAmount asks for a decimal amount in millions and returns it as typed.
func promptAmount(label string) (string, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return "", err
		}
		if _, err := market.ParseMillions(text); err != nil {
			printWarn("Enter an amount in millions, e.g. 12.5 or 0.08.")
			continue
		}
		return text, nil
	}
}

func promptInt(label string, min int) (int, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.Atoi(text)
		if err != nil {
			printWarn("Enter a whole number.")
			continue
		}
		if v < min {
			printWarn(fmt.Sprintf("Value must be >= %d", min))
			continue
		}
		return v, nil
	}
}

// termWidth is the stdout width, or 100 when stdout is not a terminal.
func termWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 100
	}
	return w
}

// nameWidth fits the name column into the terminal after fixed columns.
func nameWidth(fixed int) int {
	return min(max(termWidth()-fixed, 14), 28)
}

func renderTeams(t cl.Teams) {
	accent.Println("\n== LEAGUE ==")
	nw := nameWidth(70)
	fmt.Printf("%-*s %-9s %6s %6s %14s %12s %12s\n", nw, "CLUB", "TIER", "SQUAD", "LISTED", "TRANSFER", "WAGES/WK", "WAGE LOAD")
	for _, team := range t.Teams {
		name := truncate(team.Name, nw)
		if team.Name == t.UserTeam {
			name = success.Sprintf("%-*s", nw, name)
		} else {
			name = fmt.Sprintf("%-*s", nw, name)
		}
		fmt.Printf("%s %-9s %6d %6d %14s %12s %s\n",
			name,
			team.Tier,
			team.SquadSize,
			team.Listed,
			formatMillions(team.TransferBudgetMicros),
			formatMillions(team.WagesBudgetMicros),
			colorizeHeadroom(team.WageLoadMicros, team.WagesBudgetMicros, 12),
		)
	}
	fmt.Println()
}

func renderSquad(t market.Team) {
	accent.Printf("\n== %s ==\n", strings.ToUpper(t.Name))
	fmt.Printf("Tier:              %s\n", t.Tier)
	fmt.Printf("Transfer budget:   %s\n", formatMillions(t.Finances.TransferBudget))
	fmt.Printf("Wage budget/week:  %s\n", formatMillions(t.Finances.WagesBudget))
	fmt.Printf("Wage load/week:    %s\n", colorizeHeadroom(t.WageLoad(), t.Finances.WagesBudget, 0))
	fmt.Printf("Stadium:           %d / %d\n", t.Finances.Attendance, t.Finances.StadiumCapacity)
	fmt.Println()
	players := make([]market.Player, 0, len(t.Roster))
	for _, p := range t.Roster {
		players = append(players, *p)
	}
	renderPlayers(players)
}

func renderPlayers(players []market.Player) {
	if len(players) == 0 {
		printInfo("No players.")
		return
	}
	nw := nameWidth(88)
	fmt.Printf("%-4s %-*s %-5s %4s %4s %10s %10s %4s %-6s %s\n", "NO", nw, "NAME", "ROLE", "AGE", "OVR", "VALUE", "WAGE/WK", "YRS", "LISTED", "ID")
	for _, p := range players {
		no := "-"
		if p.SquadNumber > 0 {
			no = strconv.Itoa(p.SquadNumber)
		}
		var listed string
		if p.Listed {
			listed = warn.Sprint("yes   ")
		} else {
			listed = "      "
		}
		fmt.Printf("%-4s %-*s %-5s %4d %4d %10s %10s %4d %s %s\n",
			no,
			nw, truncate(p.Name, nw),
			p.PrimaryRole(),
			p.Age,
			p.Rating,
			formatMillions(p.ValueMicros),
			formatMillions(p.WageMicros),
			p.ContractYears,
			listed,
			dimStyle.Render(p.ID),
		)
	}
	fmt.Println()
}

func renderListings(team string, listings []market.Listing) {
	accent.Printf("\n== FOR SALE: %s ==\n", team)
	if len(listings) == 0 {
		printInfo("Nobody is listed.")
		return
	}
	nw := nameWidth(60)
	fmt.Printf("%-*s %-5s %10s %8s %6s %s\n", nw, "NAME", "ROLE", "ASKING", "LISTED", "OFFERS", "ID")
	for _, l := range listings {
		fmt.Printf("%-*s %-5s %10s %8s %6d %s\n",
			nw, truncate(l.Player.Name, nw),
			l.Player.PrimaryRole(),
			formatMillions(l.AskingMicros),
			fmt.Sprintf("wk %d", l.ListedWeek),
			l.Offers,
			dimStyle.Render(l.PlayerID),
		)
	}
	fmt.Println()
}

func renderOffers(team string, offers []market.Offer) {
	if len(offers) == 0 {
		printInfo("No pending offers.")
		return
	}
	for _, o := range offers {
		title := "Offer"
		switch {
		case team != "" && o.Buyer == team:
			title = "Outgoing offer"
		case o.Incoming && o.RequiresDecision:
			title = "Incoming offer (needs your decision)"
		case team != "" && o.Seller() == team:
			title = "Incoming offer"
		}
		renderOfferCard(title, o)
	}
}

func renderOfferCard(title string, o market.Offer) {
	lines := []string{cardTitle.Render(title)}
	switch o.Kind() {
	case market.KindTransfer:
		lines = append(lines, fmt.Sprintf("%s → %s   fee %s", o.Seller(), o.Buyer, formatMillions(o.Fee())))
	default:
		lines = append(lines, fmt.Sprintf("free agent → %s", o.Buyer))
	}
	lines = append(lines,
		fmt.Sprintf("wage %s/wk for %d years", formatMillions(o.WageMicros), o.ContractYears),
		dimStyle.Render(fmt.Sprintf("offer %s  player %s  %s  due week %d", o.ID, o.PlayerID, o.Origin, o.Deadline)),
	)
	width := min(termWidth()-2, 96)
	fmt.Println(cardStyle.Width(width).Render(strings.Join(lines, "\n")))
}

func renderMatches(matches []market.PlayerMatch) {
	if len(matches) == 0 {
		printInfo("No players found.")
		return
	}
	nw := nameWidth(70)
	fmt.Printf("%-*s %-20s %-5s %4s %10s %s\n", nw, "NAME", "CLUB", "ROLE", "OVR", "VALUE", "ID")
	for _, m := range matches {
		p := m.Player
		fmt.Printf("%-*s %-20s %-5s %4d %10s %s\n",
			nw, truncate(p.Name, nw),
			truncate(p.Club, 20),
			p.PrimaryRole(),
			p.Rating,
			formatMillions(p.ValueMicros),
			dimStyle.Render(p.ID),
		)
	}
}

func renderTransfers(recs []market.TransferRecord) {
	accent.Println("\n== TRANSFERS ==")
	if len(recs) == 0 {
		printInfo("No transfers yet.")
		return
	}
	nw := nameWidth(80)
	fmt.Printf("%-8s %-*s %-20s %-20s %10s %10s\n", "WHEN", nw, "PLAYER", "FROM", "TO", "FEE", "WAGE/WK")
	for _, r := range recs {
		fmt.Printf("%-8s %-*s %-20s %-20s %10s %10s\n",
			fmt.Sprintf("S%d W%d", r.Season, r.Week),
			nw, truncate(r.PlayerName, nw),
			truncate(r.From, 20),
			truncate(r.To, 20),
			formatMillions(r.FeeMicros),
			formatMillions(r.WageMicros),
		)
	}
	fmt.Println()
}

func renderWeekReport(out cl.AdvanceResult) {
	r := out.Report
	accent.Printf("\n== SEASON %d, WEEK %d ==\n", out.Calendar.Season, out.Calendar.WeekOfSeason)
	fmt.Printf("New foreign offers: %d\n", r.Generated)
	for _, res := range r.Resolutions {
		name := res.PlayerName
		if name == "" {
			name = res.PlayerID
		}
		switch {
		case res.Accepted && res.Transfer != nil:
			success.Printf("  %s: joined %s (%s)\n", name, res.Transfer.To, formatMillions(res.Transfer.FeeMicros))
		case res.Error != "":
			danger.Printf("  %s: deal collapsed: %s\n", name, res.Error)
		default:
			warn.Printf("  %s: rejected %d offer(s), acceptance chance was %.0f%%\n", name, len(res.Offers), res.Probability*100)
		}
	}
	if len(r.Expired) > 0 {
		fmt.Printf("Expired offers: %d\n", len(r.Expired))
	}
	fmt.Println()
}

// colorizeHeadroom pads before colouring so escape codes do not break columns.
func colorizeHeadroom(load, budget int64, width int) string {
	text := fmt.Sprintf("%*s", width, formatMillions(load))
	switch {
	case load > budget:
		return danger.Sprint(text)
	case float64(load) > 0.9*float64(budget):
		return warn.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
