package testutil

// ProjectAPI is a small project with one task in each section.
const ProjectAPI = `---
name: API Gateway
domain: web
status: active
priority: high
---

# API Gateway

## Tasks

### Open
- [ ] Write docs

### In Progress
- [ ] Add rate limiting

### Done
- [x] Set up repo
`

// ProjectNoFrontmatter has sections but no frontmatter block.
const ProjectNoFrontmatter = `# Scratch

### Open
- [ ] First idea
- [ ] Second idea
`

// ProjectNoOpenSection lacks an Open section.
const ProjectNoOpenSection = `---
name: Billing
status: active
priority: low
---

# Billing

### In Progress
- [ ] Migrate invoices

### Done
- [x] Pick provider
`
