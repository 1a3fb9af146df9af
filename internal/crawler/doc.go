// Package crawler implements the crawl engine that walks the artist index,
// fetches song pages, turns their lyric links into records and hands each
// record to a Publisher. It also defines the types and interfaces shared by
// the fetcher, publisher and storage packages.
package crawler
