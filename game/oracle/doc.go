// Package oracle supplies content the decks do not carry: extra cards when
// players ask for more vocabulary, and spooky one-line hints for the taboo
// round.
//
// Both are collaborators behind small interfaces (CardGenerator and
// HintProvider) so the game service never depends on where content comes
// from. The implementations here work offline: ReserveGenerator deals unseen
// cards from the reserve deck and TemplateHints fills hint templates from a
// card's own data. Callers fall back to FallbackHint whenever a provider
// fails.
package oracle
