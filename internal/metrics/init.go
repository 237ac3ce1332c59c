package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first scrape or textfile write.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"written", "empty", "failed"} {
		RunsTotal.WithLabelValues(status)
	}

	for _, t := range []string{"image", "video", "audio", "unknown"} {
		for _, status := range []string{"ok", "decode_error", "rejected", "skipped"} {
			AssetsTotal.WithLabelValues(t, status)
		}
	}

	for _, backend := range []string{"native", "vips"} {
		DecodeDuration.WithLabelValues(backend)
	}

	for _, format := range []string{"jpeg", "png", "gif", "webp", "bmp", "tiff", "unknown"} {
		DecodeByFormat.WithLabelValues(format)
	}

	for _, kind := range []string{"decode", "encode", "namespace"} {
		WarningsTotal.WithLabelValues(kind)
	}
	ErrorsTotal.WithLabelValues("unsupported_input")

	for _, status := range []string{"success", "error"} {
		PlaceholderGenerationsTotal.WithLabelValues(status)
		WatchRebuildsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"stat", "open"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetrySuccess.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
		FilesystemStaleErrors.WithLabelValues(op)
	}

	for _, op := range []string{"load", "save", "prune", "count"} {
		for _, status := range []string{"success", "error"} {
			DBQueryTotal.WithLabelValues(op, status)
		}
		DBQueryDuration.WithLabelValues(op)
	}

	for _, ev := range []string{"create", "write", "remove", "rename", "chmod"} {
		WatchEventsTotal.WithLabelValues(ev)
	}
}
