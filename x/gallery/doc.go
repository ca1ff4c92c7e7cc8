/*
Package gallery implements an on chain marketplace for digital collectibles.

Each account can maintain a single gallery, an append only registry of
collectibles minted by that account. A collectible can be sold for a fixed
price or through an ascending bid auction. Every settlement pays a cut to
the marketplace.
*/
package gallery
