package config

import (
	"github.com/elliotchance/orderedmap/v3"
	"gopkg.in/yaml.v3"
)

type section = orderedmap.OrderedMap[string, any]

// Describe renders the resolved settings as YAML, in declaration order,
// with the password masked.
func (r *Resolved) Describe() ([]byte, error) {
	sections := orderedmap.NewOrderedMap[string, *section]()

	database := orderedmap.NewOrderedMap[string, any]()
	database.Set("db_type", r.Source.Type)
	database.Set("connection_string", r.Source.ConnectionString)
	database.Set("username", r.Source.Username)
	database.Set("password", mask(r.Source.Password))
	database.Set("fetch_size", r.Source.FetchSize)
	sections.Set("database", database)

	export := orderedmap.NewOrderedMap[string, any]()
	export.Set("query", r.Export.Query)
	export.Set("output_file", r.Export.OutputFile)
	export.Set("format", r.Export.Format)
	export.Set("delimiter", r.Export.Delimiter)
	export.Set("show_progress", r.Export.ShowProgress)
	export.Set("include_header", r.Export.IncludeHeader)
	export.Set("buffer_size", r.Export.BufferSize)
	export.Set("compression", r.Export.Compression)
	export.Set("progress_interval", r.Export.ProgressInterval)
	sections.Set("export", export)

	logging := orderedmap.NewOrderedMap[string, any]()
	logging.Set("log_file", r.Logging.LogFile)
	logging.Set("verbose", r.Logging.Verbose)
	sections.Set("logging", logging)

	root := &yaml.Node{Kind: yaml.MappingNode}
	for name, fields := range sections.AllFromFront() {
		node, err := encodeSection(fields)
		if err != nil {
			return nil, err
		}
		root.Content = append(root.Content, scalar(name), node)
	}
	return yaml.Marshal(root)
}

func encodeSection(fields *section) (*yaml.Node, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for k, v := range fields.AllFromFront() {
		valueNode := &yaml.Node{}
		if err := valueNode.Encode(v); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, scalar(k), valueNode)
	}
	return node, nil
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
