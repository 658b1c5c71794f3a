package fortune

import (
	"fmt"
	"strings"
	"time"

	"github.com/hk-410/hakyng-bots/saju"
)

// knowledgeBase is everything the model needs to rank the personas. The
// persona list is rendered from the catalog so the two cannot drift.
const knowledgeBase = `You are an AI fortune teller. You will perform 'analysis', 'ranking', and 'tweet generation' for the daily fortunes of %[1]d IT job personas.

<Core Mission>
The user will provide 'Today's Iljin (日辰)' and the calculated 'Shipshin (十神)' for each of the %[1]d job roles.
Your primary task is to *creatively and subjectively analyze* the influence of 'Today's Iljin' on 'each Shipshin' and then **rank the %[1]d job roles from 1st to %[1]dth place**.

The ranking is relative. Several roles may share a general luck level, yet you *must* still produce a distinct ranking, deciding who is relatively luckier on this specific day.
For example, if two personas both receive 'Jeonggwan' (a 'Jung-gil' Shipshin), decide subjectively which of them ranks higher. **This subjective ranking is your most important mission.**

<Knowledge Base 1: Personas & Ilgan (日干)>
%[2]s
<Knowledge Base 2: Shipshin (十神) & IT Job Interpretations (7-Level Classification)>
%[3]s
<Knowledge Base 3: Luck Levels>
- The 7 Luck Levels (Korean terms you must use in the output):
%[4]s
- Refer to <KB2> for the base level of each Shipshin, but *you must subjectively determine the final level* by analyzing its relationship with 'Today's Iljin'.
- Multiple job roles can share the same luck level. You do not need to use all 7 levels every day.

<Creative Guideline>
- When writing the 'explanation', be creative. Do not just repeat the keywords from <KB2>.
- Your analysis should feel fresh, insightful, and specific to an IT professional's daily life.
- For the 'lucky_item', you *must* provide an object with a modifier (an adjective or a color).

<Task Order>
1. Receive 'Today's Iljin' and the %[1]d 'Calculated Shipshin' results from the user.
2. *Creatively and subjectively analyze* the Iljin's influence on each Shipshin, referencing <KB2> and the <Creative Guideline>.
3. Decide the final **ranking from 1st to %[1]dth**.
4. Assign one of the 7 'Luck Levels' (from <KB3>) to each rank.
5. Write the 'IT Job Explanation' (explanation) and 'Lucky Item' (lucky_item) for each rank.
   - **For 'lucky_item':** an object with a descriptive modifier, like '[Adjective] [Object]' or '[Color] [Object]' (Korean examples: '따뜻한 아메리카노', '작은 초록색 화분', '새로운 기계식 키보드').
6. Generate the 'mainTweetSummary' (ranked summary) as per the <Output Format>.
7. Generate the 'details' array, *sorted from 1st place (index 0) to last place*.
8. Respond *only* with the final JSON object.
`

const outputRules = `<Output Rules>
- **CRITICAL: All output text (summaries, explanations, items) MUST be in KOREAN.**
- Maintain a friendly and professional tone.
- The detailed fortune (explanation) for each job role must be concise.

<Output Format>
- Respond strictly in the following JSON structure. Do not include any other text, comments, or markdown formatting outside the JSON.
- Put the ranked summary in 'mainTweetSummary', one line per rank, using the exact Korean format shown.
- Put the detailed information in the 'details' array, *sorted by rank* (1st place at index 0).

{
  "mainTweetSummary": "1위: [직무명] (십신 / 등급)\n2위: [직무명] (십신 / 등급)\n3위: ...",
  "details": [
    {
      "persona": "[1위 직무명]",
      "shipshin": "[1위 십신]",
      "luck_level": "[LLM이 결정한 1위 등급 (e.g., 대길)]",
      "explanation": "IT 직무에 특화된 창의적이고 간결한 운세 해석 (150자 내외의 한국어 문장)",
      "lucky_item": "행운의 아이템 (수식어가 포함된 한국어 e.g., '파란색 머그컵')"
    }
  ]
}
`

// interpretations maps every Shipshin to its romanized name, keywords and
// IT reading, grouped below by base tier.
var interpretations = map[saju.Shipshin]struct {
	roman    string
	keywords string
	example  string
}{
	saju.Siksin:    {"Sikshin", "Creativity, new tech, idea realization", "New feature development, refactoring"},
	saju.Jeongjae:  {"Jeongjae", "Stable results, meticulousness", "Bug fixes, regular deployment, payday"},
	saju.Jeonggwan: {"Jeonggwan", "Recognition, promotion, stability", "Recognition from boss/client, process compliance"},
	saju.Jeongin:   {"Jeongin", "Documents, contracts, knowledge", "Tech blogging, writing specs, closing contracts"},
	saju.Pyeonjae:  {"Pyeonjae", "Fluid results, big opportunities", "Large-scale projects, side jobs"},
	saju.Bigyeon:   {"Bigyeon", "Collaboration, peers, autonomy", "Pair programming, spec reviews, competition & cooperation"},
	saju.Sanggwan:  {"Sangwan", "Conflict, rumors, breaking tradition", "Watch your words, discontent with old systems, radical proposals"},
	saju.Pyeonin:   {"Pyeonin", "Indecision, spec changes, documentation issues", "Sudden spec changes, too many ideas"},
	saju.Geopjae:   {"Geopjae", "Competition, loss, conflict", "Credit stolen, ensure backups, communication errors"},
	saju.Pyeongwan: {"Pyeongwan", "Stress, obstacles, sudden tasks", "Critical failure, server down, overtime"},
}

var tierEnglish = map[saju.LuckTier]string{
	saju.GreatFortune:     "Great Fortune",
	saju.MediumFortune:    "Medium-Good Fortune",
	saju.SmallFortune:     "Small-Good Fortune",
	saju.MixedFortune:     "Mixed Fortune",
	saju.SmallMisfortune:  "Small-Bad Fortune",
	saju.MediumMisfortune: "Medium-Bad Fortune",
	saju.GreatMisfortune:  "Great-Bad Fortune",
}

var elementEnglish = map[saju.Element]string{
	saju.Wood:  "Wood",
	saju.Fire:  "Fire",
	saju.Earth: "Earth",
	saju.Metal: "Metal",
	saju.Water: "Water",
}

// SystemPrompt renders the knowledge base and output rules for personas.
func SystemPrompt(personas []saju.Persona) string {
	var people strings.Builder
	for _, p := range personas {
		sig := p.Signature()
		fmt.Fprintf(&people, "- %s: %s(%s) %s - (Ohaeng: %s, Role: %s)\n",
			p.Name, romanStem(p.Stem), p.Stem.Hanja(), sig.Element, elementEnglish[sig.Element], p.Role)
	}

	var kb2 strings.Builder
	for _, tier := range saju.AllTiers {
		fmt.Fprintf(&kb2, "[%s (%s)]\n", tierEnglish[tier], tier)
		for _, s := range saju.AllShipshin {
			if s.BaseTier() != tier {
				continue
			}
			in := interpretations[s]
			fmt.Fprintf(&kb2, "- %s (%s): %s. %q\n", in.roman, s, in.keywords, in.example)
		}
	}

	levels := make([]string, len(saju.AllTiers))
	for i, tier := range saju.AllTiers {
		levels[i] = tier.String()
	}

	kb := fmt.Sprintf(knowledgeBase, len(personas), people.String(), kb2.String(), strings.Join(levels, ", "))
	return kb + "\n\n" + outputRules
}

// UserPrompt lists today's pillar and every persona's Shipshin.
func UserPrompt(pillar saju.Pillar, day time.Time, readings []saju.Reading) string {
	var lines strings.Builder
	for _, r := range readings {
		fmt.Fprintf(&lines, "- %s은(는) [%s]입니다.\n", r.Persona.Name, r.Shipshin)
	}

	iljin := pillar.Korean()
	sig := pillar.Stem.Signature()
	return fmt.Sprintf(`Today is %s (%s).
Today's Iljin (Cheongan) is: '%s' (Ohaeng: %s).

Here are the calculated Shipshin for each persona:
%s
Based on your <Core Mission>, *subjectively analyze* the influence of today's Iljin (%s) on each of these Shipshin.
Rank all %d personas from 1st to %dth.
Generate the complete JSON response strictly following the <Output Format>.
Ensure the 'details' array is sorted by your rank.`,
		iljin, saju.FormatKoreanDate(day),
		pillar.Stem, sig.Element,
		lines.String(),
		iljin, len(readings), len(readings))
}

var stemRoman = [...]string{"Gap", "Eul", "Byeong", "Jeong", "Mu", "Gi", "Gyeong", "Sin", "Im", "Gye"}

func romanStem(s saju.Stem) string {
	if !s.Valid() {
		return "?"
	}
	return stemRoman[s]
}
