package docfinder

const docFinderPrompt = `You are helping find the correct Google Doc for meeting notes.

We searched Google Drive for docs related to this customer and found these results:

Customer: %s

Documents found:
%s

Task: Identify which document is used to write MEETING NOTES after each call.

Important context:
- "Use Case" docs often ALSO contain meeting notes sections
- If there's BOTH a dedicated "Notes" doc AND a "Use Case" doc, prefer the Notes doc
- If there's ONLY a "Use Case" doc, it likely contains the meeting notes - select it
- Exclude docs that are clearly not for notes (e.g., "Sales Deck", "Proposal", "Contract")

Return ONLY valid JSON in one of these formats:

Single match (high confidence):
{"doc_id": "abc123", "doc_name": "Meeting Notes", "confidence": "high", "reasoning": "..."}

Multiple matches (need user choice):
{"options": [{"doc_id": "...", "doc_name": "..."}], "needs_user_choice": true, "reasoning": "..."}

No valid doc found:
{"error": "No meeting notes doc found", "reasoning": "..."}`
