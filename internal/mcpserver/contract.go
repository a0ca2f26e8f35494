package mcpserver

// UpdateFormatContract describes the update batch format that LLM
// consumers must produce for the apply_updates tool.
const UpdateFormatContract = `# Register Update Format

An update batch is a JSON array of items (a single object is accepted as a
batch of one). Each item targets one volume register:

` + "```" + `json
[
  {
    "volume": "I,1",
    "record": {
      "lemma": "Aal",
      "previous": "Aachen",
      "next": "Aalen",
      "sort_key": "Aal (Fluss)",
      "redirect": "Aale",
      "wp_link": "Aal (Fluss)",
      "ws_link": "Aal",
      "chapters": [{"start": 1, "end": 2, "author": "Schmidt"}]
    },
    "remove": ["redirect"],
    "self_supplement": false
  }
]
` + "```" + `

## Rules

1. ` + "`" + `volume` + "`" + ` must name a cataloged volume (e.g. ` + "`" + `I,1` + "`" + `, ` + "`" + `II A,2` + "`" + `, ` + "`" + `S III` + "`" + `, ` + "`" + `R` + "`" + `).
2. ` + "`" + `record.lemma` + "`" + ` is required. Every other record field is optional; only
   non-empty fields overwrite the existing entry.
3. ` + "`" + `previous` + "`" + ` and ` + "`" + `next` + "`" + ` name the neighboring lemmas in the printed volume. They
   decide where a new lemma is inserted, so give at least one for new entries.
4. ` + "`" + `redirect` + "`" + ` is either a target title or ` + "`" + `true` + "`" + ` for a redirect without target.
5. Chapters need ` + "`" + `start` + "`" + ` and ` + "`" + `end` + "`" + ` pages with start <= end. ` + "`" + `author` + "`" + ` is the
   citation as printed; it is resolved through the author mapping.
6. ` + "`" + `remove` + "`" + ` deletes fields from the existing entry. Allowed values: previous,
   next, sort_key, redirect, wp_link, ws_link, chapters.
7. ` + "`" + `self_supplement` + "`" + ` targets the second occurrence of a title that appears twice
   in the same volume.
8. Unknown fields reject the whole batch. Records that cannot be placed are
   reported per item; the rest of the batch is still applied.
`
