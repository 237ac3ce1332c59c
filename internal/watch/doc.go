// Package watch regenerates the media document when source files change.
//
// fsnotify is not recursive, so every directory below the roots of the source
// patterns is added individually, and directories created later are added as
// their create events arrive. Hidden directories are not watched.
//
// An event triggers a rebuild when its path matches the source patterns, or
// when a watched directory appears or disappears. Events for hidden files,
// chmod-only events and events on ignored paths (the generated document) are
// dropped. Rebuilds are debounced: a burst of events results in one rebuild
// once the tree has been quiet for the debounce interval.
//
//	w, err := watch.New(watch.Config{
//	    Patterns: []string{"images/**/*.{jpg,png}"},
//	    Debounce: 200 * time.Millisecond,
//	    Ignore:   []string{"data/media.json"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer w.Close()
//	return w.Run(ctx, rebuild)
package watch
