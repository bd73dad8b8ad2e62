/*
Package uploader stores reviewer material (PDFs and images) uploaded by the
app in object storage through POST /api/upload.

Request

	POST /api/upload
	Content-Type: multipart/form-data

	file    the uploaded file (required)
	folder  destination folder (optional, defaults to UPLOAD_DEFAULT_FOLDER)

Objects are stored under <folder>/<yyyy-mm-dd>/<uuid>_<filename> with the
file's content type and its SHA-256 as user metadata.

Response

	{
	    "id": "3c0e...",
	    "success": true,
	    "data": {
	        "key": "reviewers/2024-01-15/7d9f..._general-education.pdf",
	        "size": 1024000,
	        "content_type": "application/pdf",
	        "checksum": "sha256hash...",
	        "uploaded_at": "2024-01-15T08:00:00Z"
	    }
	}

Failures use the same envelope with an error code: VALIDATION_ERROR (400),
PAYLOAD_TOO_LARGE (413), UNSUPPORTED_MEDIA_TYPE (415) or STORAGE_FAILED (500).

Configuration

	STORAGE_PROVIDER              s3 (default) or fs
	STORAGE_BUCKET                bucket name
	STORAGE_BASE_PATH             root directory for the fs provider
	S3_ENDPOINT, S3_USE_PATH_STYLE  S3-compatible endpoints
	UPLOAD_MAX_FILE_SIZE          bytes (default 20 MiB)
	UPLOAD_ALLOWED_CONTENT_TYPES  comma separated allowlist
	UPLOAD_DEFAULT_FOLDER         default destination folder
*/
package uploader
