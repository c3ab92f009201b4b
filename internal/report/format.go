// Package report renders lottery data as Slack mrkdwn.
package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"lottobot/internal/domain"
	"lottobot/internal/generator"
	"lottobot/internal/simulation"
	"lottobot/internal/stats"
)

const disclaimer = "_Draws are independent. None of this changes the odds of any combination._"

// Numbers renders a combination as `03` `07` `15` ...
func Numbers(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("`%02d`", n)
	}
	return strings.Join(parts, " ")
}

// Won formats an amount in KRW with thousands separators.
func Won(amount int64) string {
	s := strconv.FormatInt(amount, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String() + " KRW"
	if neg {
		return "-" + out
	}
	return out
}

func Draw(d domain.Draw) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Round %d*", d.Round))
	if !d.Date.IsZero() {
		sb.WriteString(fmt.Sprintf(" (%s)", d.Date.Format("2006-01-02")))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s  + bonus `%02d`\n", Numbers(d.Numbers[:]), d.Bonus))
	sb.WriteString(fmt.Sprintf("- Sum: %d (%s)\n", d.Sum(), stats.SumBucket(d.Sum())))
	if d.FirstWinners > 0 {
		sb.WriteString(fmt.Sprintf("- 1st prize: %s x %d winners\n", Won(d.FirstPrize), d.FirstWinners))
	}
	if d.TotalSales > 0 {
		sb.WriteString(fmt.Sprintf("- Total sales: %s\n", Won(d.TotalSales)))
	}
	return sb.String()
}

// Statistics renders the top and bottom of the frequency table plus the
// hot/cold lists, sum histogram and odd/even totals.
func Statistics(st stats.Statistics, top int) string {
	if st.DrawCount == 0 {
		return "No draws in the window yet. Run `/lotto-sync` first."
	}
	if top <= 0 {
		top = 10
	}

	var sb strings.Builder
	basis := "main numbers only"
	if st.CountBasis == domain.PickCount+1 {
		basis = "bonus included"
	}
	sb.WriteString(fmt.Sprintf("*Statistics over %d draws* (up to round %d, %s)\n\n", st.DrawCount, st.LatestRound, basis))

	sb.WriteString("*Most drawn*\n")
	for _, n := range st.Numbers[:min(top, len(st.Numbers))] {
		sb.WriteString(numberLine(n))
	}
	sb.WriteString("\n*Least drawn*\n")
	for i := len(st.Numbers) - 1; i >= max(len(st.Numbers)-top, 0); i-- {
		sb.WriteString(numberLine(st.Numbers[i]))
	}

	sb.WriteString(fmt.Sprintf("\n*Hot* (last %d draws): %s\n", st.RecentWindow, numbersOrNone(st.Hot(top))))
	sb.WriteString(fmt.Sprintf("*Cold* (last %d draws): %s\n", st.RecentWindow, numbersOrNone(st.Cold(top))))

	sb.WriteString("\n*Sum ranges*\n")
	for _, b := range st.SumRanges {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", b.Label, b.Count))
	}
	sb.WriteString(fmt.Sprintf("\n*Odd/even*: %d odd, %d even\n", st.OddTotal, st.EvenTotal))
	sb.WriteString("\n" + disclaimer)
	return sb.String()
}

func numberLine(n stats.NumberStatistic) string {
	last := "never"
	if n.LastRound > 0 {
		last = fmt.Sprintf("round %d (%d ago)", n.LastRound, n.CurrentGap)
	}
	return fmt.Sprintf("- `%02d`: %d times, avg gap %.1f, last %s\n", n.Number, n.Count, n.AverageGap, last)
}

func numbersOrNone(nums []int) string {
	if len(nums) == 0 {
		return "none"
	}
	return Numbers(nums)
}

func Pairs(pairs []stats.CoOccurrencePair, draws, limit int) string {
	if len(pairs) == 0 {
		return "No number pairs found in the window."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Most frequent pairs* (%d draws)\n", draws))
	for _, p := range pairs[:min(limit, len(pairs))] {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", Numbers(p.Numbers[:]), p.Count))
	}
	return sb.String()
}

func Triples(triples []stats.CoOccurrenceTriple, draws, limit int) string {
	if len(triples) == 0 {
		return "No number triples found in the window."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Most frequent triples* (%d draws)\n", draws))
	for _, t := range triples[:min(limit, len(triples))] {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", Numbers(t.Numbers[:]), t.Count))
	}
	return sb.String()
}

func Generation(results []generator.Result) string {
	if len(results) == 0 {
		return "Nothing generated."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%d combination(s)*, strategy `%s`\n", len(results), results[0].Strategy))
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. %s  (sum %d, %d odd/%d even, %d high/%d low)",
			i+1, Numbers(r.Numbers), r.Stats.Sum, r.Stats.Odd, r.Stats.Even, r.Stats.High, r.Stats.Low))
		if len(r.Relaxed) > 0 {
			sb.WriteString(fmt.Sprintf("  :warning: relaxed %s", strings.Join(r.Relaxed, ", ")))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(disclaimer)
	return sb.String()
}

func Simulation(run simulation.Run) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Simulation against round %d* %s\n", run.Target.Round, Numbers(run.Target.Numbers[:])))
	if len(run.Required) > 0 {
		sb.WriteString(fmt.Sprintf("- Required: %s (at least %d per candidate)\n", Numbers(run.Required), run.MinRequired))
	}
	switch run.Outcome {
	case simulation.OutcomeMatched:
		sb.WriteString(fmt.Sprintf("- :tada: Matched after %d of %d trials\n", run.Trials, run.MaxTrials))
	case simulation.OutcomeExhausted:
		sb.WriteString(fmt.Sprintf("- No match in %d trials\n", run.Trials))
	case simulation.OutcomeCanceled:
		sb.WriteString(fmt.Sprintf("- Stopped after %d trials\n", run.Trials))
	case simulation.OutcomeInfeasible:
		sb.WriteString("- Target unreachable with these required numbers, no trials run\n")
	}
	if len(run.Last) > 0 {
		sb.WriteString(fmt.Sprintf("- Last candidate: %s\n", Numbers(run.Last)))
	}
	sb.WriteString(fmt.Sprintf("- Elapsed: %s\n", run.Elapsed.Round(time.Millisecond)))
	return sb.String()
}

func SimulationHistory(records []domain.SimulationRecord, loc *time.Location) string {
	if len(records) == 0 {
		return "No simulations yet. Try `/lotto-sim round=<n> required=3,7,15 min=2`."
	}
	if loc == nil {
		loc = time.UTC
	}
	var sb strings.Builder
	sb.WriteString("*Your recent simulations*\n")
	for _, r := range records {
		sb.WriteString(fmt.Sprintf("- %s round %d: %s, %d/%d trials",
			r.CreatedAt.In(loc).Format("01-02 15:04"), r.TargetRound, r.Outcome, r.Trials, r.MaxTrials))
		if len(r.Required) > 0 {
			sb.WriteString(fmt.Sprintf(", required %s", Numbers(r.Required)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// SavedPicks lists picks and, when latest is non-nil, how each would have
// fared against it.
func SavedPicks(picks []domain.SavedPick, latest *domain.Draw, loc *time.Location) string {
	if len(picks) == 0 {
		return "You have no saved picks. Use `/lotto-save 3 9 17 22 31 44`."
	}
	if loc == nil {
		loc = time.UTC
	}
	var sb strings.Builder
	sb.WriteString("*Your saved picks*")
	if latest != nil {
		sb.WriteString(fmt.Sprintf(" (checked against round %d)", latest.Round))
	}
	sb.WriteString("\n")
	for _, p := range picks {
		sb.WriteString(fmt.Sprintf("#%d %s", p.ID, Numbers(p.Numbers[:])))
		if latest != nil {
			sb.WriteString(" " + rankLabel(domain.Rank(p.Numbers[:], *latest), domain.MatchCount(p.Numbers[:], *latest)))
		}
		if p.Strategy != "" {
			sb.WriteString(fmt.Sprintf(" _%s_", p.Strategy))
		}
		if p.Note != "" {
			sb.WriteString(" " + p.Note)
		}
		sb.WriteString(fmt.Sprintf(" (%s)\n", p.CreatedAt.In(loc).Format("2006-01-02")))
	}
	return sb.String()
}

func rankLabel(rank, matches int) string {
	if rank == 0 {
		return fmt.Sprintf("[%d match]", matches)
	}
	return fmt.Sprintf("[*rank %d*]", rank)
}
