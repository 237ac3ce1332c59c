/*
Package filesystem wraps os.Stat and os.Open with retry logic for NFS stale
file handle errors (ESTALE).

Asset directories are frequently network mounts on build machines; a stale
handle during a run would otherwise be reported as a decode failure of a
perfectly valid image.

# Usage

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
	    return err
	}
	defer f.Close()

Only ESTALE is retried, with exponential backoff capped at MaxBackoff. Any
other error is returned immediately. Retries, successes after retry and
final failures are counted in the media_json_filesystem_* metrics.
*/
package filesystem
