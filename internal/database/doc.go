// Package database persists decoded image dimensions in a SQLite file so
// that separate runs of media-json skip images they have measured before.
//
// Entries are keyed by path, size and modification time; an edited image
// gets a new key and the old row is pruned by the next full run. The file
// uses WAL journaling, so a watch process and one-shot builds may share it.
//
//	db, err := database.New(ctx, "/var/cache/media-json/dimensions.db")
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//	decoder, _ := media.NewCachingDecoder(base, 4096)
//	decoder.WithStore(db)
package database
