// Package staticfiles is a pipeline module that serves files from a local
// directory.
//
// Configuration:
//
//	root: /var/www/html
//	index_file: index.html
//	page_404: /404.html
//
// The module stays inactive until a root directory is configured, either in
// a configuration file or with the --root flag. A relative root is resolved
// against the directory of the configuration file that set it. Requests for
// a directory redirect to the slash-terminated form and then serve the
// configured index file; requests for missing files answer 404, with the
// page_404 file as the body when one is configured. Only GET and HEAD are
// accepted. Once active the module answers every request reaching it, so it
// belongs at the end of a pipeline.
package staticfiles
