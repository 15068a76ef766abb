// Package display renders boxed terminal messages: warnings and the
// expected/actual report shown when a test fails.
//
//	w := display.UnboundVariables([]string{"RESOURCE_GROUP"})
//	w.Display(os.Stdout, true)
//
// Color is applied only when the caller asks for it, so every renderer
// can be tested against a bytes.Buffer.
package display
