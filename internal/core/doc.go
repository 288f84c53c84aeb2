// Package core runs cleaning plans end to end.
//
// This package holds the pipeline logic independent of any transport. The
// CLI and the HTTP API both drive the same [Service].
//
// # Pipeline
//
// A [config.Plan] selects a source and the stages to run. [Service.Run]
// executes them in a fixed order on one in-memory frame:
//
//  1. Load the table through pgx, or a CSV or parquet file
//  2. Replace outliers (IQR or z-score)
//  3. Normalize text columns (dates, numbers in unit strings, category codes)
//  4. Reduce skew: manual overrides first, then the candidate search
//  5. Export to CSV or parquet, optionally uploading to S3
//  6. Write the cleaned frame back to a table
//
// Each run receives a uuid run id that [logging.FromContext] attaches to
// every log line, and holds a [RunLimiter] slot for its duration.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - SKW001-SKW003: Skew reduction errors (domain, configuration, option)
//   - DB001-DB005: Database errors (connection, credentials, missing table)
//   - CRED001-CRED002: Credentials file errors
//   - PLAN001-PLAN002: Plan file errors
//   - DATA001-DATA002: Column errors
//   - EXP001-EXP002: Export and upload errors
//   - RUN001-RUN003: Run errors (busy, cancelled, timeout)
//
// # Metrics
//
// Runs, transforms and replaced outliers are counted with Prometheus
// collectors registered on the default registry.
package core
