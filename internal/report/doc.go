// Package report renders collection and crawl reports.
//
// This package contains writers for different destinations:
//   - MarkdownWriter: Markdown output for documentation and sharing
//   - SimpleWriter: Human-readable text output for terminal display
//
// Reports can also be rendered into a book format itself (a PDF or
// EPUB of the collection catalog) through RenderFile, which routes the
// markdown through the format plugins.
//
// Design decision: We separate report writing from the data structures
// (model and book packages) so new output formats never touch the core
// types. Writers implement the Writer interface and can be composed
// with MultiWriter for terminal-plus-file output.
package report
