package mcpserver

// NoteFormatContract describes the canonical note format Munin reads
// and writes. LLM consumers should follow it when interpreting notes.
const NoteFormatContract = `# Munin Note Format Contract

Every note stored in a Munin vault follows this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable topic title
category: decisions
tags: ["connection-pool", "postgres"]
aliases: ["Database Connection Timeout Handling"]
created: 2025-01-15T09:30:00Z
updated: 2025-02-01T14:12:00Z
entry_count: 3
status: active
---

## 2025-01-15T09:30:00Z

First captured contribution.

## 2025-02-01T14:12:00Z

A later contribution merged into the same topic.
` + "```" + `

## Rules

1. **Frontmatter is mandatory** and fenced by ` + "```" + `---` + "```" + ` lines at the very
   top of the file.
2. **` + "`" + `title` + "`" + ` is the display name**; the filename stem is its normalized
   slug (lowercase, hyphenated, max 50 characters).
3. **Arrays** (` + "`" + `tags` + "`" + `, ` + "`" + `aliases` + "`" + `) are bracketed quoted-string lists on one line.
4. **` + "`" + `aliases` + "`" + ` are historical titles** this note has absorbed; they widen
   future duplicate matching. At most 10 are kept.
5. **` + "`" + `entry_count` + "`" + `** counts merged contributions and is always >= 1.
6. **` + "`" + `status` + "`" + `** is one of active, superseded, draft.
7. **Body sections** are appended under ` + "`" + `## <RFC3339 timestamp>` + "`" + ` headers;
   existing content is never rewritten.
8. **Categories** are the vault's top-level directories: decisions,
   patterns, errors, research, knowledge. ` + "`" + `{category}.md` + "`" + ` index files and
   the ` + "`" + `.archive` + "`" + ` directories are maintained by Munin and must not be
   treated as notes.
9. **Unknown frontmatter fields are preserved**: tools may add their own
   fields and Munin will carry them through every rewrite unchanged.
`
