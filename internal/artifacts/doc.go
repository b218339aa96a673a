// Package artifacts uploads run diagnostics (compiler output and a JSON
// summary) to an S3 compatible bucket after generation.
//
// Objects are stored under <prefix>/<run id>/. The upload policy decides
// whether every run or only failed runs are uploaded.
package artifacts
