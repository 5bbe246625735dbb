// Package language maps configured target languages to the names used in
// translation prompts and the codes the voice synthesis engine expects.
package language
