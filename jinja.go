// Package jinja provides a Jinja-style template engine for Go host applications.
//
// Templates use the familiar Jinja delimiters:
//
//	Hello {{ user.name | title }}!
//	{% for item in items if item.visible %}- {{ loop.index }}. {{ item.label }}
//	{% else %}nothing to show{% endfor %}
//
// # Basic Usage
//
// Create an engine, compile a template once and render it many times:
//
//	engine := jinja.MustNew()
//	tmpl, err := engine.Compile("Hello {{ name }}!")
//	if err != nil {
//	    // err is a *jinja.CompileError carrying stage, tokens and line:column
//	}
//	out, err := tmpl.Render(ctx, map[string]any{"name": "Ada"})
//	// out: "Hello Ada!"
//
// # Render Contexts
//
// A template renders against one of three context shapes:
//
//	tmpl.Render(ctx, map[string]any{...})       // flat name/value map
//	tmpl.RenderObject(ctx, &Invoice{...})       // public members of a host value
//	tmpl.RenderGlobals(ctx, globals, true)      // shared namespace, mutated in place
//
// # Tags
//
// The built-in tags are if/elif/else, for (with else, an if filter clause and
// recursive), set (inline and block capture), macro, call and raw. Custom tags
// are added per engine:
//
//	engine, _ := jinja.New(jinja.WithTagParser("shout", myShoutParser))
//
// # Filters
//
// Built-in filters cover the common Jinja set (default, join, map, selectattr,
// sort, tojson, truncate and more). Filters registered on a template shadow
// built-ins for that template only:
//
//	tmpl.RegisterFilter("upper", func(v any, args []any) (any, error) { ... })
//
// # Loading Templates
//
// Named templates are fetched through a SourceLoader and cached by the engine:
//
//	loader, _ := jinja.NewFileSystemLoader("./templates", ".j2", logger)
//	engine, _ := jinja.New(jinja.WithLoader(loader))
//	tmpl, err := engine.GetTemplate(ctx, "invoice")
//
// # Configuration
//
// Customize the engine with functional options or a YAML file:
//
//	engine, _ := jinja.New(
//	    jinja.WithLstripBlocks(true),
//	    jinja.WithMaxDepth(64),
//	    jinja.WithLogger(logger),
//	)
package jinja
