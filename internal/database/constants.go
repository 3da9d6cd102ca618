package database

// FaceEmbeddingDim is the fixed dimension for face embeddings (512 for buffalo_l/ArcFace).
// The face_embeddings.embedding column is declared with this size.
const FaceEmbeddingDim = 512

// Similarity values are stored as NUMERIC(6,4).
const SimilarityDecimals = 4
