// Package session keeps uploaded datasets in memory between requests.
//
// Entries expire ttl after their last access and the store holds at most
// maxSize datasets, evicting the oldest upload when full. Get
// returns a clone, and Update applies a change to a clone before swapping
// it in, so readers never observe a half-applied cleaning step.
package session
