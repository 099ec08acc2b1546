package mcpserver

// GraphFormatContract describes the node/edge JSON that generate_graph returns
// and accepts as current_graph.
const GraphFormatContract = `# Graphgen Graph Format Contract

A graph is a JSON object with two arrays. Order is display order only.

` + "```" + `json
{
  "nodes": [
    {"id": "api", "type": "group", "data": {"label": "Backend"}, "position": {"x": 0, "y": 0}},
    {"id": "1", "type": "smart", "parentId": "api",
     "data": {"label": "Auth service", "body": "Issues tokens", "backgroundColor": "#fde68a"},
     "position": {"x": 20, "y": 40}},
    {"id": "2", "type": "default", "data": {"label": "Database"}, "position": {"x": 300, "y": 40}}
  ],
  "edges": [
    {"id": "e1-2", "source": "1", "target": "2", "label": "SQL", "directed": true}
  ],
  "explanation": "An auth service inside the backend group writing to a database."
}
` + "```" + `

## Rules

1. **Node ids are unique strings.** Numeric ids are accepted and converted to strings.
2. **` + "`" + `data.label` + "`" + ` is required.** ` + "`" + `data.body` + "`" + ` and ` + "`" + `data.backgroundColor` + "`" + ` are optional.
3. **` + "`" + `type` + "`" + `** is ` + "`" + `default` + "`" + ` when omitted. ` + "`" + `group` + "`" + ` nodes contain others; ` + "`" + `smart` + "`" + ` nodes carry a body.
4. **` + "`" + `parentId` + "`" + `** must name an existing node. Unknown or cyclic parents are cleared.
5. **Edges** need a unique ` + "`" + `id` + "`" + `, and ` + "`" + `source` + "`" + `/` + "`" + `target` + "`" + ` naming existing nodes.
   Edges pointing at missing nodes are dropped. ` + "`" + `directed` + "`" + ` defaults to true.
6. **Duplicates**: the first node or edge with a given id wins; later copies are dropped.

## Updates

Pass the diagram you already have as ` + "`" + `current_graph` + "`" + ` (a JSON string). The result is the
complete updated diagram, never a diff. Ids of unchanged nodes are preserved, so keep
positions you already rendered keyed by id.
`
