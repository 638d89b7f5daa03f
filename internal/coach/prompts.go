package coach

import (
	"fmt"
	"strings"

	"github.com/bhackerb/PeakForm-C/internal/pipeline"
)

const (
	calorieTolerance = 50
	proteinTolerance = 5
	carbsTolerance   = 10
	fatTolerance     = 5
)

const mealRotation = `| Meal | kcal | P (g) | C (g) | F (g) |
|------|------|-------|-------|-------|
| Yogurt PB Protein Bowl | 352 | 51 | 30 | 3 |
| Vegetarian Creole Jambalaya (1 srv) | 641 | 31 | 100 | 10 |
| Tofu Broccoli Parm (1 srv) | 474 | 35 | 60 | 12 |
| Pre-Run Snack (rice cake + PB + honey) | 175 | 4 | 20 | 9 |
| Banana Bread (1 slice) | 135 | 5 | 22 | 3 |`

const chatInstructions = `You are PeakForm, a personal fitness and nutrition coach with full access to the user's training data. ` +
	`Answer questions directly using their actual numbers. Be concise, specific and actionable. ` +
	`Cite exact values when available. If data is missing or incomplete say so clearly. Format responses in Markdown.`

// AnalysisPrompt asks for a performance assessment of the analyzed week
// combined with the subjective interview answers.
func AnalysisPrompt(iv Interview, res *pipeline.Result) string {
	var b strings.Builder
	b.WriteString("You are an elite performance coach at PeakForm. Synthesise the data below into a tight, ")
	b.WriteString("actionable performance-first analysis before next week's planning session.\n\n")

	b.WriteString("---\n")
	b.WriteString(Digest(res))
	b.WriteString("\n## Subjective biofeedback\n")
	b.WriteString("| Metric | Score | Context |\n|--------|-------|---------|\n")
	fmt.Fprintf(&b, "| Sleep quality | %d/10 | 1 = terrible, 10 = perfect |\n", iv.SleepScore)
	fmt.Fprintf(&b, "| Hunger level | %d/10 | 1 = never hungry, 10 = ravenous all day |\n", iv.HungerScore)
	fmt.Fprintf(&b, "| Overall weekly RPE | %d/10 | 1 = very easy, 10 = maximal effort |\n", iv.RPEScore)
	fmt.Fprintf(&b, "| Notes | %s | |\n\n", orDefault(iv.Notes, "None provided"))

	b.WriteString("## Training context\n")
	fmt.Fprintf(&b, "- Mesocycle: week %d of %d, %s\n\n", iv.MesocycleWeek, iv.MesocycleLength, iv.MesocycleType)

	b.WriteString("## New nutrition targets\n")
	writeTargets(&b, iv.NewTargets)

	b.WriteString("\n## Previous week's plan\n")
	b.WriteString(orDefault(iv.PreviousPlan, "_Not provided._"))
	b.WriteString("\n\n---\n")

	b.WriteString("Deliver the analysis in these sections, 3-5 bullet points each, bold critical risks:\n\n")
	b.WriteString("### 1. Strategy alignment check\n")
	b.WriteString("Does the new calorie and carb target make sense given the training stress? Call out conflicts explicitly.\n\n")
	b.WriteString("### 2. Performance trend\n")
	b.WriteString("Is running trending UP, PLATEAUING or DECLINING? Cite pace, HR and body battery numbers against the 4-week baseline.\n\n")
	b.WriteString("### 3. Recovery status\n")
	fmt.Fprintf(&b, "Verdict: Recovered | Mildly Fatigued | Significantly Fatigued. Combine body battery, RPE (%d/10), sleep (%d/10) and hunger (%d/10).\n\n",
		iv.RPEScore, iv.SleepScore, iv.HungerScore)
	b.WriteString("### 4. Injury and overtraining risk\n")
	fmt.Fprintf(&b, "Rate Low | Moderate | High. Factor the mileage trend, body battery drain, cycle week (%d/%d) and RPE.\n\n",
		iv.MesocycleWeek, iv.MesocycleLength)
	b.WriteString("### 5. Nutrition-performance link\n")
	b.WriteString("Identify 1-3 specific timing adjustments to improve run performance next week.\n")
	return b.String()
}

// ProposalPrompt turns an accepted analysis into a strategy proposal for the
// coming week.
func ProposalPrompt(analysis string, iv Interview) string {
	var b strings.Builder
	b.WriteString("Based on this performance analysis:\n\n")
	b.WriteString(analysis)
	b.WriteString("\n\nGenerate a concise strategy proposal for next week, readable in 90 seconds. Use this structure:\n\n")

	b.WriteString("## Nutritional pivot\n")
	fmt.Fprintf(&b, "Current targets: %.0f kcal / %.0fg P / %.0fg C / %.0fg F\n\n",
		iv.NewTargets.Calories, iv.NewTargets.ProteinG, iv.NewTargets.CarbsG, iv.NewTargets.FatG)
	b.WriteString("Propose day-type adjustments; the weekly average must still match the targets:\n")
	for _, day := range []string{"Rest days", "Easy run days", "Long / hard run days", "Strength-only days"} {
		fmt.Fprintf(&b, "- **%s:** [kcal] | [P]g P / [C]g C / [F]g F, one-line rationale\n", day)
	}

	b.WriteString("\n## Workout intensity verdict\n")
	b.WriteString("Stay the Course | Slight Deload (-10-15% volume) | Full Deload | Push Week (+5-10%), with a 2 sentence reason.\n\n")

	b.WriteString("## Suggested training schedule\n| Day | Training |\n|-----|----------|\n")
	for _, day := range []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"} {
		fmt.Fprintf(&b, "| %s | |\n", day)
	}

	b.WriteString("\n## Watch item this week\n")
	b.WriteString("The single most important thing that could derail progress.\n")
	return b.String()
}

// TemplatePrompt asks for the finalized 7-day plan built from an approved
// proposal.
func TemplatePrompt(proposal string, iv Interview) string {
	t := iv.NewTargets

	var b strings.Builder
	b.WriteString("Generate a complete, finalized 7-day PeakForm weekly plan as clean Markdown.\n\n")
	b.WriteString("## Approved strategy\n")
	b.WriteString(proposal)

	b.WriteString("\n\n## Hard macro constraints\n")
	b.WriteString("| Macro | Target | Tolerance |\n|-------|--------|-----------|\n")
	fmt.Fprintf(&b, "| Calories | %.0f kcal | ±%d kcal |\n", t.Calories, calorieTolerance)
	fmt.Fprintf(&b, "| Protein | %.0fg | ±%dg |\n", t.ProteinG, proteinTolerance)
	fmt.Fprintf(&b, "| Carbs | %.0fg | ±%dg |\n", t.CarbsG, carbsTolerance)
	fmt.Fprintf(&b, "| Fat | %.0fg | ±%dg |\n", t.FatG, fatTolerance)

	b.WriteString("\n## Meal options\n")
	b.WriteString(mealRotation)
	b.WriteString("\n\n## Meal approach\n")
	if iv.UseNewMeals {
		b.WriteString("Suggest new high-protein meals beyond the standard rotation. All new meals must have verified macro values.\n")
	} else {
		b.WriteString("Use the existing meal rotation only. Adjust portion sizes to hit daily targets. Do not introduce new meals.\n")
	}

	b.WriteString("\n## Output format\n")
	b.WriteString("Start with:\n")
	b.WriteString("# PeakForm Weekly Plan\n")
	fmt.Fprintf(&b, "**Mesocycle:** Week %d of %d, %s\n", iv.MesocycleWeek, iv.MesocycleLength, iv.MesocycleType)
	fmt.Fprintf(&b, "**Daily Targets:** %.0f kcal, %.0fg P, %.0fg C, %.0fg F\n\n", t.Calories, t.ProteinG, t.CarbsG, t.FatG)
	b.WriteString("Then for each day Monday through Sunday give the training, the calorie target, a meal table with a DAILY TOTAL row and a short timing note. ")
	b.WriteString("Finish with a grocery list and a Sunday batch prep plan.\n\n")

	fmt.Fprintf(&b, "Verify every DAILY TOTAL row before outputting it. Protein must be between %.0fg and %.0fg. Calories must be between %.0f and %.0f.\n",
		t.ProteinG-proteinTolerance, t.ProteinG+proteinTolerance, t.Calories-calorieTolerance, t.Calories+calorieTolerance)
	return b.String()
}

// ChatSystemPrompt grounds a Q&A conversation on the analyzed week.
func ChatSystemPrompt(res *pipeline.Result) string {
	var b strings.Builder
	b.WriteString(chatInstructions)
	b.WriteString("\n\n")
	if res != nil {
		fmt.Fprintf(&b, "## Weekly report (%s)\n\n", res.Window)
	}
	b.WriteString(Digest(res))
	return b.String()
}

func writeTargets(b *strings.Builder, t Targets) {
	b.WriteString("| Calories | Protein | Carbs | Fat |\n|----------|---------|-------|-----|\n")
	fmt.Fprintf(b, "| %.0f kcal | %.0fg | %.0fg | %.0fg |\n", t.Calories, t.ProteinG, t.CarbsG, t.FatG)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
