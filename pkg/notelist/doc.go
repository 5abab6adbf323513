// Package notelist keeps a rendered list of notes consistent with the notes
// service. Every mutation is followed by a full refresh of the list rather
// than a local update, so vote counts shown to the user are always the
// server's.
package notelist
