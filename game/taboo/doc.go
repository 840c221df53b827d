// Package taboo implements the timed describe-the-word round.
//
// A Round holds the card being described, its forbidden words and an
// optional hint, plus a countdown that starts at Duration and stops at zero.
// Draw picks a random card from the pool, Toggle starts or pauses the
// countdown and Reset restores the full time without a card.
//
// Like the memory engine, the countdown is a self-rescheduling one-shot
// timer tagged with a generation, so a tick scheduled before a pause or
// reset is discarded.
package taboo
