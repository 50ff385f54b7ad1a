// Package tsexpand describes TypeScript types as JSON-friendly type objects
// that an editor can expand one level at a time. It is built on tree-sitter
// and a small structural type checker over a loaded snapshot of source
// files.
//
// # Pipeline
//
// A request goes through four stages:
//
//  1. Resolve: a file path plus 0-based line and UTF-16 column is mapped to
//     the innermost syntax node, or a file is enumerated for its exported
//     declarations.
//  2. Check: the node or declaration is given a checker type.
//  3. Classify: the checker type is mapped to exactly one type object
//     variant (Primitive, Literal, Union, Object, ...). Object members are
//     not expanded; the object carries a store key instead.
//  4. Expand: GetProperties resolves a store key to the object's members,
//     each classified the same way.
//
// # Usage
//
//	e, err := tsexpand.New(tsexpand.WithLogger(logger))
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.LoadDirectory(ctx, "path/to/project")
//
//	decls, err := e.ExtractDeclaredTypes(ctx, "path/to/project/src/user.ts")
//	obj := decls[0].Type.(*typeobject.Object)
//	props := e.GetProperties(ctx, obj.StoreKey)
//
// # Sessions
//
// Every ExtractDeclaredTypes and ClassifyAtPosition call starts a session
// with an empty property store. Store keys are valid until the next such
// call; an unknown key yields a single placeholder property named "unknown".
// [Engine.UpdateSnapshot] swaps the program without discarding the
// session.
//
// # Index
//
// With [WithIndex], [Engine.Index] records every exported declaration of
// the snapshot in SQLite, skipping files whose content hash is unchanged.
// [Engine.FindDeclarations] queries it, optionally through a Risor
// predicate; see the internal/filter package for the globals it reads.
package tsexpand
