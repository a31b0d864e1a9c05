// Package goform is a headless form-state engine.
//
// A Form tracks a tree of named field values together with their validation
// errors and the derived flags of a form (dirty, touched, valid, submitting).
// UI bindings attach host elements to fields through the Registration returned
// by Register and forward change and blur events; everything else is driven by
// the imperative API.
//
// Design policy:
//   - Keep the public API in the root package; path handling lives in fieldpath,
//     tree helpers and array primitives under internal/.
//   - Values are any-trees (map[string]any, []any and scalars) addressed by
//     paths such as "items.0.name" or "items[0].name".
//   - Validation failures are data (ErrorTree), never Go errors. Misuse of the
//     API is reported as *UsageError through the logger and WithDiagnostics.
//   - Subscribers are notified once per operation, and only about the state
//     keys they read.
//
// Typical usage:
//
//	f := goform.New(goform.WithMode(goform.ModeOnBlur))
//	reg := f.Register("email", goform.RegisterOptions{Required: goform.Required("email is required")})
//	reg.Ref(input)
//
//	sub := f.Subscribe(goform.SubscribeOptions{Callback: func(st *goform.FormState) {
//		render(st.Errors(), st.IsDirty())
//	}})
//	defer sub.Unsubscribe()
//
//	submit := f.HandleSubmit(func(ctx context.Context, values map[string]any) error {
//		return save(ctx, values)
//	}, nil)
//	err := submit(ctx)
package goform
