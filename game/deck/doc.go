// Package deck provides vocabulary deck management for the game suite.
//
// The deck package handles:
//   - The built-in decks compiled into the binary (halloween, reserve)
//   - Loading additional decks from JSON files in a deck directory
//   - Deck validation and playability checks
//   - Default deck selection and deck listing
//
// Deck Format:
//
// A deck is a JSON document with a name, a description and a list of cards.
// Each card carries the English word, its translation, an image URL and the
// taboo words that may not be used when describing it:
//
//	{
//	  "name": "halloween",
//	  "description": "Classic Halloween vocabulary",
//	  "cards": [
//	    {"word": "Ghost", "translation": "鬼", "image": "https://...", "taboo": ["boo", "white"]}
//	  ]
//	}
//
// Usage:
//
//	manager, err := deck.NewManager("decks")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	d, err := manager.LoadDeck("halloween")
//	decks, err := manager.ListDecks()
//
// Files in the deck directory shadow built-in decks of the same name.
package deck
