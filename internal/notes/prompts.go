package notes

// Separators the model is instructed to place between its three output
// sections. Parsing falls back gracefully when the model drops one.
const (
	summarySeparator = "---SUMMARY---"
	splitSeparator   = "---SPLIT---"
)

const structuringPrompt = `You are creating structured call notes for account executives and sales engineers.

You will receive:
1. Current account snapshot (if exists)
2. New call transcript

Output THREE sections separated by "---SUMMARY---" and "---SPLIT---":

**SECTION 1: Updated Account Snapshot**
Format:
` + "```" + `
=== ACCOUNT SNAPSHOT ===
Primary Use Case: [one-line summary]
Current Solution: [what they use today]
Why Us: [their main reasons]
Why Now: [urgency/timing]

Key Stakeholders:
- Name (Role) - [involvement]

Business Impact: [what breaks without us]
Timing/Priority: [timeline, urgency]
Workload Sizing: [Low/Med/High + details]
Risks: [blockers, concerns]

Additional Use Cases: [if any]
=== END SNAPSHOT ===
` + "```" + `

Update this section based on new information from the call. Preserve existing details not contradicted by the new call.

---SUMMARY---

**SECTION 2: Call Summary** (quick scan - posted with the Slack confirmation)
Format as 3-5 concise bullet points for quick review:
- Primary topic or decision from this call
- Key outcomes or action items
- Critical blockers (if any)
- Notable technical details
- Urgent follow-ups

Guidelines:
- Keep each bullet to one line
- Focus on "need to know" before the next interaction
- Use markdown for **emphasis** on critical items

---SPLIT---

**SECTION 3: Detailed Call Notes** (comprehensive - inserted under date block)
Format as conversational bullets:

**Participants**
[Names with phonetic spellings, roles]

**Use Case/Context**
[What they're building, why they need us]

**Current State**
[Where they are today, scale, adoption status]

**Technical Details**
- SDK/language
- Architecture notes
- Specific challenges discussed

**Why Us / Why Now**
[Reasoning, alternatives considered]

**Next Steps**
[Person - action - timing]

**Open Items**
[Unresolved questions]

Guidelines:
- Be conversational and scannable
- Include direct quotes when useful
- Add phonetic spellings: "Lukasz (lukash)"
- Focus on substance over formatting
- Use markdown: **bold** for emphasis, ## for headings, - for bullets`

const noSnapshotPlaceholder = "No existing snapshot - this is the first call"

const callUserPrompt = `EXISTING SNAPSHOT:
%s

NEW CALL:
Title: %s
Date: %s

Transcript:
%s`
