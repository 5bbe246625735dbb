// Package bilibili publishes finished videos through the biliup CLI and
// builds the submission metadata (title, description, tags) shared with the
// metadata stage.
//
// Credentials are a biliup cookie file. They are checked before the first
// upload attempt so a missing login fails fast instead of burning retries.
// A successful upload is persisted as bilibili.json with result code 0,
// which is the completion marker for the upload stage.
package bilibili
