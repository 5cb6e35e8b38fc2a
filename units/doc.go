// Package units holds the built-in components that declarative flows can
// reference by name. All of them operate on *flow.State.
//
//	reg := flow.NewRegistry[*flow.State]()
//	if err := units.Register(reg, units.Options{LLM: client}); err != nil {
//	    return err
//	}
//	f, err := flow.Build(def, reg)
//
// Components:
//
//	set      writes fixed values into the state
//	log      logs a message with selected state keys
//	counter  increments a counter, tagging "continue" until a limit, then "done"
//	branch   maps a state value to a tag
//	llm      renders a prompt, asks the model and stores the answer
package units
