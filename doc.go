// datalake is the glue between a streaming ingestion service, an object
// storage data lake and a data warehouse. It contains the shared interfaces and
// the two runnable units which are built on them.
//
// 1. Ingest Handler (package ingest)
//
//    The Ingest Handler is invoked once per batch of stream records delivered
//    by the platform trigger. Each record carries a base64 wrapped JSON
//    payload and a partition key. The handler decodes the payload and writes
//    it, one object per record, into the raw zone of the lake under
//    raw/<yyyy>/<MM>/<dd>/<HH>/<mm>/<ss>/<partition key>.json. The key embeds
//    the write time rather than anything from the record, so a redelivered
//    batch produces new objects instead of overwriting the old ones. Records
//    are handled in order and the first failure fails the whole batch; the
//    platform is responsible for redelivery.
//
// 2. Curation Job (package curate)
//
//    The Curation Job reads every object under raw/ in the raw bucket, projects
//    each JSON document onto a fixed set of columns, and writes the result
//    twice: as Parquet files partitioned by year/month/day in the curated zone,
//    and into a warehouse table through a staging area and a COPY. The two
//    writes are not transactional, and a rerun over an unchanged raw zone
//    loads the same rows again.
//
// The raw zone layout is the only contract between the two units. Both talk to
// storage through the ObjectStore interface defined here, so that the same
// logic runs against S3, an S3 compatible server, a local directory, or the
// in-memory store in package mock.
package datalake
