// Package stages implements the dubbing pipeline's stages on top of the
// stage contract: download, extract-audio, separate, transcribe, translate,
// speak, mux, metadata and upload.
//
// Each stage reads its inputs from the working folder, delegates the heavy
// lifting to a collaborator behind a small interface, and writes exactly one
// completion artifact. Media outputs are rendered to a ".partial" sibling
// and renamed into place so an interrupted run never leaves a truncated file
// that would pass the completion check.
package stages
